package onnx

import (
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from onnx.proto. Only the messages the converter writes are
// covered; see decode.go for the matching reader.
const (
	modelIRVersion       = 1
	modelProducerName    = 2
	modelProducerVersion = 3
	modelDomain          = 4
	modelModelVersion    = 5
	modelDocString       = 6
	modelGraph           = 7
	modelOpsetImport     = 8
	modelMetadataProps   = 14

	opsetDomain  = 1
	opsetVersion = 2

	metadataKey   = 1
	metadataValue = 2

	graphNode        = 1
	graphName        = 2
	graphInitializer = 5
	graphInput       = 11
	graphOutput      = 12

	nodeInput  = 1
	nodeOutput = 2
	nodeName   = 3
	nodeOpType = 4
	nodeDomain = 7

	valueInfoName = 1
	valueInfoType = 2

	typeTensorType = 1

	tensorTypeElem  = 1
	tensorTypeShape = 2

	shapeDim = 1

	dimValue = 1
	dimParam = 2

	tensorDims     = 1
	tensorDataType = 2
	tensorName     = 8
	tensorRawData  = 9
)

// Encode serializes the model to ONNX protobuf bytes. The output depends only
// on the Model contents, never on iteration order or allocation state.
func (m *Model) Encode() []byte {
	var b []byte
	b = appendVarintField(b, modelIRVersion, m.IRVersion)
	b = appendStringField(b, modelProducerName, m.ProducerName)
	b = appendStringField(b, modelProducerVersion, m.ProducerVersion)
	b = appendStringField(b, modelDomain, m.Domain)
	b = appendVarintField(b, modelModelVersion, m.ModelVersion)
	b = appendStringField(b, modelDocString, m.DocString)
	b = appendMessageField(b, modelGraph, m.Graph.encode())
	for _, op := range m.Opsets {
		b = appendMessageField(b, modelOpsetImport, op.encode())
	}
	for _, md := range m.Metadata {
		b = appendMessageField(b, modelMetadataProps, md.encode())
	}
	return b
}

// WriteFile serializes the model and writes it to path, creating parent
// directories as needed. Existing files are truncated so re-exports replace
// prior output in place.
func WriteFile(path string, m *Model) error {
	if m == nil {
		return fmt.Errorf("onnx: nil model")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, m.Encode(), 0o644); err != nil {
		return fmt.Errorf("write model %s: %w", path, err)
	}
	return nil
}

func (op OpsetImport) encode() []byte {
	var b []byte
	b = appendStringField(b, opsetDomain, op.Domain)
	b = protowire.AppendTag(b, opsetVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(op.Version))
	return b
}

func (md MetadataProp) encode() []byte {
	var b []byte
	b = appendStringField(b, metadataKey, md.Key)
	b = appendStringField(b, metadataValue, md.Value)
	return b
}

func (g Graph) encode() []byte {
	var b []byte
	for _, n := range g.Nodes {
		b = appendMessageField(b, graphNode, n.encode())
	}
	b = appendStringField(b, graphName, g.Name)
	for _, init := range g.Initializers {
		b = appendMessageField(b, graphInitializer, init.encode())
	}
	for _, vi := range g.Inputs {
		b = appendMessageField(b, graphInput, vi.encode())
	}
	for _, vi := range g.Outputs {
		b = appendMessageField(b, graphOutput, vi.encode())
	}
	return b
}

func (n Node) encode() []byte {
	var b []byte
	for _, in := range n.Inputs {
		b = appendStringField(b, nodeInput, in)
	}
	for _, out := range n.Outputs {
		b = appendStringField(b, nodeOutput, out)
	}
	b = appendStringField(b, nodeName, n.Name)
	b = appendStringField(b, nodeOpType, n.OpType)
	b = appendStringField(b, nodeDomain, n.Domain)
	return b
}

func (vi ValueInfo) encode() []byte {
	var shape []byte
	for _, d := range vi.Dims {
		shape = appendMessageField(shape, shapeDim, d.encode())
	}

	var tensorType []byte
	tensorType = appendVarintField(tensorType, tensorTypeElem, int64(vi.Type))
	tensorType = appendMessageField(tensorType, tensorTypeShape, shape)

	var typ []byte
	typ = appendMessageField(typ, typeTensorType, tensorType)

	var b []byte
	b = appendStringField(b, valueInfoName, vi.Name)
	b = appendMessageField(b, valueInfoType, typ)
	return b
}

func (d Dim) encode() []byte {
	var b []byte
	switch {
	case d.Param != "":
		b = appendStringField(b, dimParam, d.Param)
	case d.Value >= 0:
		b = protowire.AppendTag(b, dimValue, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d.Value))
	}
	// Neither branch: unknown dimension, encoded as an empty message.
	return b
}

func (init Initializer) encode() []byte {
	var b []byte
	for _, d := range init.Dims {
		b = protowire.AppendTag(b, tensorDims, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d))
	}
	b = appendVarintField(b, tensorDataType, int64(init.Type))
	b = appendStringField(b, tensorName, init.Name)
	b = protowire.AppendTag(b, tensorRawData, protowire.BytesType)
	b = protowire.AppendBytes(b, init.Raw)
	return b
}

func appendVarintField(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}
