package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"meloconv/internal/onnx"
)

// ErrNoTensors indicates the file parsed cleanly but contained no tensor
// entries, which usually means it is not a model checkpoint at all.
var ErrNoTensors = errors.New("checkpoint contains no tensors")

// Tensor is one named parameter from a checkpoint, already converted to the
// element type and raw layout the ONNX writer expects.
type Tensor struct {
	Name string
	Type onnx.ElemType
	Dims []int64
	Raw  []byte
}

// NumBytes returns the size of the tensor's element data.
func (t Tensor) NumBytes() int64 { return int64(len(t.Raw)) }

// Checkpoint is the loaded content of one .pt file. Tensors are sorted by
// name so downstream serialization is deterministic.
type Checkpoint struct {
	Path    string
	Tensors []Tensor
}

// TotalBytes returns the summed raw size of all tensors.
func (c *Checkpoint) TotalBytes() int64 {
	var total int64
	for _, t := range c.Tensors {
		total += t.NumBytes()
	}
	return total
}

// Loader loads a checkpoint from disk. The export orchestrator depends on
// this type so tests can substitute fixtures for real torch files.
type Loader func(path string) (*Checkpoint, error)

// Load reads a torch checkpoint file and extracts its named tensors.
func Load(path string) (*Checkpoint, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat checkpoint: %w", err)
	}

	obj, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", path, err)
	}

	cp, err := FromObject(obj)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", path, err)
	}
	cp.Path = path
	return cp, nil
}

// FromObject converts an unpickled torch object into a Checkpoint. The object
// may be a bare state dict or a training checkpoint wrapping one under a
// "model" or "state_dict" key.
func FromObject(obj any) (*Checkpoint, error) {
	entries := dictEntries(unwrapStateDict(obj))
	if len(entries) == 0 {
		return nil, ErrNoTensors
	}

	cp := &Checkpoint{}
	for _, e := range entries {
		name, ok := e.key.(string)
		if !ok {
			continue
		}
		src, ok := e.value.(*pytorch.Tensor)
		if !ok {
			continue
		}
		t, err := convertTensor(name, src)
		if err != nil {
			return nil, err
		}
		cp.Tensors = append(cp.Tensors, t)
	}
	if len(cp.Tensors) == 0 {
		return nil, ErrNoTensors
	}

	sort.Slice(cp.Tensors, func(i, j int) bool { return cp.Tensors[i].Name < cp.Tensors[j].Name })
	return cp, nil
}

type entry struct {
	key   any
	value any
}

// unwrapStateDict descends through the conventional wrapper keys torch
// training loops use when saving full checkpoints.
func unwrapStateDict(obj any) any {
	for _, key := range []string{"model", "state_dict"} {
		inner, ok := dictGet(obj, key)
		if !ok {
			continue
		}
		if len(dictEntries(inner)) > 0 {
			return inner
		}
	}
	return obj
}

func dictGet(obj any, key string) (any, bool) {
	switch d := obj.(type) {
	case *types.OrderedDict:
		return d.Get(key)
	case *types.Dict:
		return d.Get(key)
	default:
		return nil, false
	}
}

func dictEntries(obj any) []entry {
	switch d := obj.(type) {
	case *types.OrderedDict:
		entries := make([]entry, 0, len(d.Map))
		for _, e := range d.Map {
			entries = append(entries, entry{key: e.Key, value: e.Value})
		}
		return entries
	case *types.Dict:
		entries := make([]entry, 0, len(*d))
		for _, e := range *d {
			entries = append(entries, entry{key: e.Key, value: e.Value})
		}
		return entries
	default:
		return nil
	}
}
