package onnx

import (
	"fmt"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// ReadFile parses path into the Model subset understood by this package.
// Fields outside the subset are skipped, so models produced by other
// exporters can still be inspected.
func ReadFile(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	m, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	return m, nil
}

// Decode parses ONNX protobuf bytes into a Model.
func Decode(raw []byte) (*Model, error) {
	m := &Model{}
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
		switch num {
		case modelIRVersion:
			m.IRVersion = int64(v)
		case modelProducerName:
			m.ProducerName = string(payload)
		case modelProducerVersion:
			m.ProducerVersion = string(payload)
		case modelDomain:
			m.Domain = string(payload)
		case modelModelVersion:
			m.ModelVersion = int64(v)
		case modelDocString:
			m.DocString = string(payload)
		case modelGraph:
			g, err := decodeGraph(payload)
			if err != nil {
				return err
			}
			m.Graph = g
		case modelOpsetImport:
			op, err := decodeOpset(payload)
			if err != nil {
				return err
			}
			m.Opsets = append(m.Opsets, op)
		case modelMetadataProps:
			md, err := decodeMetadata(payload)
			if err != nil {
				return err
			}
			m.Metadata = append(m.Metadata, md)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func decodeGraph(raw []byte) (Graph, error) {
	var g Graph
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
		switch num {
		case graphNode:
			n, err := decodeNode(payload)
			if err != nil {
				return err
			}
			g.Nodes = append(g.Nodes, n)
		case graphName:
			g.Name = string(payload)
		case graphInitializer:
			init, err := decodeInitializer(payload)
			if err != nil {
				return err
			}
			g.Initializers = append(g.Initializers, init)
		case graphInput:
			vi, err := decodeValueInfo(payload)
			if err != nil {
				return err
			}
			g.Inputs = append(g.Inputs, vi)
		case graphOutput:
			vi, err := decodeValueInfo(payload)
			if err != nil {
				return err
			}
			g.Outputs = append(g.Outputs, vi)
		}
		return nil
	})
	return g, err
}

func decodeNode(raw []byte) (Node, error) {
	var n Node
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
		switch num {
		case nodeInput:
			n.Inputs = append(n.Inputs, string(payload))
		case nodeOutput:
			n.Outputs = append(n.Outputs, string(payload))
		case nodeName:
			n.Name = string(payload)
		case nodeOpType:
			n.OpType = string(payload)
		case nodeDomain:
			n.Domain = string(payload)
		}
		return nil
	})
	return n, err
}

func decodeValueInfo(raw []byte) (ValueInfo, error) {
	var vi ValueInfo
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
		switch num {
		case valueInfoName:
			vi.Name = string(payload)
		case valueInfoType:
			return walkFields(payload, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
				if num != typeTensorType {
					return nil
				}
				return walkFields(payload, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
					switch num {
					case tensorTypeElem:
						vi.Type = ElemType(v)
					case tensorTypeShape:
						dims, err := decodeShape(payload)
						if err != nil {
							return err
						}
						vi.Dims = dims
					}
					return nil
				})
			})
		}
		return nil
	})
	return vi, err
}

func decodeShape(raw []byte) ([]Dim, error) {
	var dims []Dim
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
		if num != shapeDim {
			return nil
		}
		d := Unknown()
		err := walkFields(payload, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
			switch num {
			case dimValue:
				d = Fixed(int64(v))
			case dimParam:
				d = Dynamic(string(payload))
			}
			return nil
		})
		if err != nil {
			return err
		}
		dims = append(dims, d)
		return nil
	})
	return dims, err
}

func decodeInitializer(raw []byte) (Initializer, error) {
	var init Initializer
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
		switch num {
		case tensorDims:
			if typ == protowire.BytesType {
				// Packed encoding.
				vals, err := consumePackedVarints(payload)
				if err != nil {
					return err
				}
				init.Dims = append(init.Dims, vals...)
			} else {
				init.Dims = append(init.Dims, int64(v))
			}
		case tensorDataType:
			init.Type = ElemType(v)
		case tensorName:
			init.Name = string(payload)
		case tensorRawData:
			init.Raw = append([]byte(nil), payload...)
		}
		return nil
	})
	return init, err
}

func decodeOpset(raw []byte) (OpsetImport, error) {
	var op OpsetImport
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
		switch num {
		case opsetDomain:
			op.Domain = string(payload)
		case opsetVersion:
			op.Version = int64(v)
		}
		return nil
	})
	return op, err
}

func decodeMetadata(raw []byte) (MetadataProp, error) {
	var md MetadataProp
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error {
		switch num {
		case metadataKey:
			md.Key = string(payload)
		case metadataValue:
			md.Value = string(payload)
		}
		return nil
	})
	return md, err
}

// walkFields iterates the top-level fields of a wire-format message. For
// varint fields the value is passed in v; for length-delimited fields the
// bytes are passed in payload. Fixed32/fixed64 fields are skipped.
func walkFields(raw []byte, visit func(num protowire.Number, typ protowire.Type, v uint64, payload []byte) error) error {
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return fmt.Errorf("onnx: malformed tag: %w", protowire.ParseError(n))
		}
		raw = raw[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return fmt.Errorf("onnx: field %d: %w", num, protowire.ParseError(n))
			}
			raw = raw[n:]
			if err := visit(num, typ, v, nil); err != nil {
				return err
			}
		case protowire.BytesType:
			payload, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return fmt.Errorf("onnx: field %d: %w", num, protowire.ParseError(n))
			}
			raw = raw[n:]
			if err := visit(num, typ, 0, payload); err != nil {
				return err
			}
		case protowire.Fixed32Type:
			_, n := protowire.ConsumeFixed32(raw)
			if n < 0 {
				return fmt.Errorf("onnx: field %d: %w", num, protowire.ParseError(n))
			}
			raw = raw[n:]
		case protowire.Fixed64Type:
			_, n := protowire.ConsumeFixed64(raw)
			if n < 0 {
				return fmt.Errorf("onnx: field %d: %w", num, protowire.ParseError(n))
			}
			raw = raw[n:]
		default:
			return fmt.Errorf("onnx: field %d: unsupported wire type %d", num, typ)
		}
	}
	return nil
}

func consumePackedVarints(raw []byte) ([]int64, error) {
	var vals []int64
	for len(raw) > 0 {
		v, n := protowire.ConsumeVarint(raw)
		if n < 0 {
			return nil, fmt.Errorf("onnx: packed varint: %w", protowire.ParseError(n))
		}
		raw = raw[n:]
		vals = append(vals, int64(v))
	}
	return vals, nil
}
