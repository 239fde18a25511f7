package checkpoint

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nlpodyssey/gopickle/pytorch"

	"meloconv/internal/onnx"
)

// convertTensor turns a gopickle tensor view into contiguous raw data with an
// ONNX element type. Half and bfloat16 storages arrive from gopickle already
// widened to float32 and are exported as FLOAT.
func convertTensor(name string, t *pytorch.Tensor) (Tensor, error) {
	if t.Source == nil {
		return Tensor{}, fmt.Errorf("tensor %q: missing storage", name)
	}
	if !isContiguous(t.Size, t.Stride) {
		return Tensor{}, fmt.Errorf("tensor %q: non-contiguous layout (size %v, stride %v)", name, t.Size, t.Stride)
	}

	n := numel(t.Size)
	off := t.StorageOffset

	dims := make([]int64, len(t.Size))
	for i, d := range t.Size {
		dims[i] = int64(d)
	}

	var (
		elem onnx.ElemType
		raw  []byte
		err  error
	)

	switch src := t.Source.(type) {
	case *pytorch.FloatStorage:
		elem, raw, err = onnx.Float, float32Bytes(src.Data, off, n), nil
	case *pytorch.HalfStorage:
		elem, raw, err = onnx.Float, float32Bytes(src.Data, off, n), nil
	case *pytorch.BFloat16Storage:
		elem, raw, err = onnx.Float, float32Bytes(src.Data, off, n), nil
	case *pytorch.DoubleStorage:
		elem, raw, err = onnx.Double, float64Bytes(src.Data, off, n), nil
	case *pytorch.LongStorage:
		elem, raw, err = onnx.Int64, int64Bytes(src.Data, off, n), nil
	case *pytorch.IntStorage:
		elem, raw, err = onnx.Int32, int32Bytes(src.Data, off, n), nil
	case *pytorch.ShortStorage:
		elem, raw, err = onnx.Int16, int16Bytes(src.Data, off, n), nil
	case *pytorch.CharStorage:
		elem, raw, err = onnx.Int8, int8Bytes(src.Data, off, n), nil
	case *pytorch.ByteStorage:
		elem, raw, err = onnx.UInt8, uint8Bytes(src.Data, off, n), nil
	case *pytorch.BoolStorage:
		elem, raw, err = onnx.Bool, boolBytes(src.Data, off, n), nil
	default:
		err = fmt.Errorf("tensor %q: unsupported storage type %T", name, t.Source)
	}
	if err != nil {
		return Tensor{}, err
	}
	if raw == nil {
		return Tensor{}, fmt.Errorf("tensor %q: storage shorter than size %v at offset %d", name, t.Size, off)
	}

	return Tensor{Name: name, Type: elem, Dims: dims, Raw: raw}, nil
}

func numel(size []int) int {
	n := 1
	for _, d := range size {
		n *= d
	}
	return n
}

// isContiguous reports whether the stride describes a dense row-major view.
// An empty stride is accepted: legacy checkpoints omit it for dense tensors.
func isContiguous(size, stride []int) bool {
	if len(stride) == 0 {
		return true
	}
	if len(stride) != len(size) {
		return false
	}
	expected := 1
	for i := len(size) - 1; i >= 0; i-- {
		if size[i] != 1 && stride[i] != expected {
			return false
		}
		expected *= size[i]
	}
	return true
}

func float32Bytes(data []float32, off, n int) []byte {
	if off < 0 || off+n > len(data) {
		return nil
	}
	out := make([]byte, n*4)
	for i, v := range data[off : off+n] {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func float64Bytes(data []float64, off, n int) []byte {
	if off < 0 || off+n > len(data) {
		return nil
	}
	out := make([]byte, n*8)
	for i, v := range data[off : off+n] {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

func int64Bytes(data []int64, off, n int) []byte {
	if off < 0 || off+n > len(data) {
		return nil
	}
	out := make([]byte, n*8)
	for i, v := range data[off : off+n] {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
	}
	return out
}

func int32Bytes(data []int32, off, n int) []byte {
	if off < 0 || off+n > len(data) {
		return nil
	}
	out := make([]byte, n*4)
	for i, v := range data[off : off+n] {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}

func int16Bytes(data []int16, off, n int) []byte {
	if off < 0 || off+n > len(data) {
		return nil
	}
	out := make([]byte, n*2)
	for i, v := range data[off : off+n] {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func int8Bytes(data []int8, off, n int) []byte {
	if off < 0 || off+n > len(data) {
		return nil
	}
	out := make([]byte, n)
	for i, v := range data[off : off+n] {
		out[i] = byte(v)
	}
	return out
}

func uint8Bytes(data []uint8, off, n int) []byte {
	if off < 0 || off+n > len(data) {
		return nil
	}
	return append([]byte(nil), data[off:off+n]...)
}

func boolBytes(data []bool, off, n int) []byte {
	if off < 0 || off+n > len(data) {
		return nil
	}
	out := make([]byte, n)
	for i, v := range data[off : off+n] {
		if v {
			out[i] = 1
		}
	}
	return out
}
