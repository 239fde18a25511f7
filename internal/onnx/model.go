package onnx

import "fmt"

// ElemType is an ONNX tensor element type (TensorProto.DataType).
type ElemType int32

const (
	Undefined ElemType = 0
	Float     ElemType = 1
	UInt8     ElemType = 2
	Int8      ElemType = 3
	UInt16    ElemType = 4
	Int16     ElemType = 5
	Int32     ElemType = 6
	Int64     ElemType = 7
	Bool      ElemType = 9
	Float16   ElemType = 10
	Double    ElemType = 11
)

// String returns the lowercase ONNX name for the element type.
func (t ElemType) String() string {
	switch t {
	case Float:
		return "float32"
	case UInt8:
		return "uint8"
	case Int8:
		return "int8"
	case UInt16:
		return "uint16"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	case Float16:
		return "float16"
	case Double:
		return "float64"
	default:
		return fmt.Sprintf("elem(%d)", int32(t))
	}
}

// Size returns the byte width of one element, or 0 when unknown.
func (t ElemType) Size() int {
	switch t {
	case UInt8, Int8, Bool:
		return 1
	case UInt16, Int16, Float16:
		return 2
	case Float, Int32:
		return 4
	case Int64, Double:
		return 8
	default:
		return 0
	}
}

// Dim is a single entry of a TensorShapeProto. A dimension is either fixed
// (Value >= 0), dynamic (named via Param), or unknown (neither set).
type Dim struct {
	Value int64
	Param string
}

// Fixed returns a dimension with a concrete size.
func Fixed(v int64) Dim { return Dim{Value: v} }

// Dynamic returns a named variable-length dimension.
func Dynamic(name string) Dim { return Dim{Value: -1, Param: name} }

// Unknown returns a dimension with no declared size.
func Unknown() Dim { return Dim{Value: -1} }

// IsDynamic reports whether the dimension carries a dim_param.
func (d Dim) IsDynamic() bool { return d.Param != "" }

// String renders the dimension the way inspection output shows shapes.
func (d Dim) String() string {
	if d.Param != "" {
		return d.Param
	}
	if d.Value < 0 {
		return "?"
	}
	return fmt.Sprintf("%d", d.Value)
}

// ValueInfo declares a graph input or output: name, element type, and shape.
type ValueInfo struct {
	Name string
	Type ElemType
	Dims []Dim
}

// Node is a single operator in the graph.
type Node struct {
	Name    string
	OpType  string
	Domain  string
	Inputs  []string
	Outputs []string
}

// Initializer is a weight tensor embedded in the graph. Raw holds the
// little-endian element data.
type Initializer struct {
	Name string
	Type ElemType
	Dims []int64
	Raw  []byte
}

// OpsetImport pins an operator set the model depends on. An empty domain
// means the default ONNX domain.
type OpsetImport struct {
	Domain  string
	Version int64
}

// Graph is the GraphProto subset the converter produces.
type Graph struct {
	Name         string
	Nodes        []Node
	Inputs       []ValueInfo
	Outputs      []ValueInfo
	Initializers []Initializer
}

// Model is the ModelProto subset the converter produces.
type Model struct {
	IRVersion       int64
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	DocString       string
	Opsets          []OpsetImport
	Metadata        []MetadataProp
	Graph           Graph
}

// MetadataProp is one metadata_props entry. A slice rather than a map keeps
// serialization order deterministic.
type MetadataProp struct {
	Key   string
	Value string
}

// Input returns the graph input with the given name, if present.
func (g *Graph) Input(name string) (ValueInfo, bool) {
	for _, vi := range g.Inputs {
		if vi.Name == name {
			return vi, true
		}
	}
	return ValueInfo{}, false
}

// Output returns the graph output with the given name, if present.
func (g *Graph) Output(name string) (ValueInfo, bool) {
	for _, vi := range g.Outputs {
		if vi.Name == name {
			return vi, true
		}
	}
	return ValueInfo{}, false
}
