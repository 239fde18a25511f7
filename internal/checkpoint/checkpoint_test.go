package checkpoint

import (
	"testing"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meloconv/internal/onnx"
)

func floatTensor(data []float32, size ...int) *pytorch.Tensor {
	stride := make([]int, len(size))
	acc := 1
	for i := len(size) - 1; i >= 0; i-- {
		stride[i] = acc
		acc *= size[i]
	}
	return &pytorch.Tensor{
		Source: &pytorch.FloatStorage{BaseStorage: pytorch.BaseStorage{Size: len(data)}, Data: data},
		Size:   size,
		Stride: stride,
	}
}

func TestFromObjectBareStateDict(t *testing.T) {
	sd := types.NewOrderedDict()
	sd.Set("enc.weight", floatTensor([]float32{1, 2, 3, 4, 5, 6}, 2, 3))
	sd.Set("dec.bias", floatTensor([]float32{0.5}, 1))

	cp, err := FromObject(sd)
	require.NoError(t, err)
	require.Len(t, cp.Tensors, 2)

	// Sorted by name.
	assert.Equal(t, "dec.bias", cp.Tensors[0].Name)
	assert.Equal(t, "enc.weight", cp.Tensors[1].Name)

	w := cp.Tensors[1]
	assert.Equal(t, onnx.Float, w.Type)
	assert.Equal(t, []int64{2, 3}, w.Dims)
	assert.Len(t, w.Raw, 24)
	assert.Equal(t, int64(28), cp.TotalBytes())
}

func TestFromObjectUnwrapsModelKey(t *testing.T) {
	sd := types.NewOrderedDict()
	sd.Set("flow.weight", floatTensor([]float32{1, 2}, 2))

	wrapper := types.NewOrderedDict()
	wrapper.Set("iteration", 1000)
	wrapper.Set("model", sd)

	cp, err := FromObject(wrapper)
	require.NoError(t, err)
	require.Len(t, cp.Tensors, 1)
	assert.Equal(t, "flow.weight", cp.Tensors[0].Name)
}

func TestFromObjectSkipsNonTensorEntries(t *testing.T) {
	sd := types.NewOrderedDict()
	sd.Set("learning_rate", 0.0002)
	sd.Set("emb.weight", floatTensor([]float32{9}, 1))

	cp, err := FromObject(sd)
	require.NoError(t, err)
	require.Len(t, cp.Tensors, 1)
	assert.Equal(t, "emb.weight", cp.Tensors[0].Name)
}

func TestFromObjectNoTensors(t *testing.T) {
	sd := types.NewOrderedDict()
	sd.Set("iteration", 5)

	_, err := FromObject(sd)
	assert.ErrorIs(t, err, ErrNoTensors)
}

func TestConvertTensorIntTypes(t *testing.T) {
	long := &pytorch.Tensor{
		Source: &pytorch.LongStorage{BaseStorage: pytorch.BaseStorage{Size: 3}, Data: []int64{-1, 0, 7}},
		Size:   []int{3},
		Stride: []int{1},
	}
	got, err := convertTensor("ids", long)
	require.NoError(t, err)
	assert.Equal(t, onnx.Int64, got.Type)
	assert.Equal(t, []int64{3}, got.Dims)
	assert.Len(t, got.Raw, 24)
	// Little-endian two's complement of -1.
	assert.Equal(t, byte(0xFF), got.Raw[0])
}

func TestConvertTensorHalfPromotedToFloat(t *testing.T) {
	half := &pytorch.Tensor{
		Source: &pytorch.HalfStorage{BaseStorage: pytorch.BaseStorage{Size: 2}, Data: []float32{0.5, -0.5}},
		Size:   []int{2},
		Stride: []int{1},
	}
	got, err := convertTensor("half.weight", half)
	require.NoError(t, err)
	assert.Equal(t, onnx.Float, got.Type)
	assert.Len(t, got.Raw, 8)
}

func TestConvertTensorStorageOffset(t *testing.T) {
	shared := &pytorch.FloatStorage{BaseStorage: pytorch.BaseStorage{Size: 4}, Data: []float32{0, 1, 2, 3}}
	view := &pytorch.Tensor{
		Source:        shared,
		StorageOffset: 2,
		Size:          []int{2},
		Stride:        []int{1},
	}
	got, err := convertTensor("view", view)
	require.NoError(t, err)
	assert.Len(t, got.Raw, 8)
}

func TestConvertTensorNonContiguous(t *testing.T) {
	transposed := &pytorch.Tensor{
		Source: &pytorch.FloatStorage{BaseStorage: pytorch.BaseStorage{Size: 6}, Data: make([]float32, 6)},
		Size:   []int{3, 2},
		Stride: []int{1, 3},
	}
	_, err := convertTensor("t", transposed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-contiguous")
}

func TestConvertTensorShortStorage(t *testing.T) {
	short := &pytorch.Tensor{
		Source: &pytorch.FloatStorage{BaseStorage: pytorch.BaseStorage{Size: 1}, Data: []float32{1}},
		Size:   []int{4},
		Stride: []int{1},
	}
	_, err := convertTensor("broken", short)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage shorter")
}

func TestIsContiguous(t *testing.T) {
	assert.True(t, isContiguous([]int{2, 3}, []int{3, 1}))
	assert.True(t, isContiguous([]int{2, 3}, nil))
	assert.True(t, isContiguous([]int{1, 256, 1}, []int{256, 1, 1}))
	assert.False(t, isContiguous([]int{2, 3}, []int{1, 2}))
	assert.False(t, isContiguous([]int{2, 3}, []int{1}))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir() + "/absent.pt")
	require.Error(t, err)
}
