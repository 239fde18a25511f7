package export

import (
	"meloconv/internal/checkpoint"
	"meloconv/internal/onnx"
)

const (
	producerName    = "meloconv"
	producerVersion = "0.1.0"

	// customDomain is the operator domain the inference runtime registers
	// its fused MeloTTS kernels under.
	customDomain = "ai.melotts"

	// irVersion 7 pairs with opset 13, matching what the training-framework
	// exporter emitted for these models.
	irVersion = 7
)

// modelSpec is the static description of one exported model: its signature,
// the fused operator realizing it, and the metadata recorded alongside.
type modelSpec struct {
	graphName string
	opType    string
	docString string
	opset     int64
	inputs    []onnx.ValueInfo
	outputs   []onnx.ValueInfo
	metadata  []onnx.MetadataProp
}

// buildModel realizes a spec against a loaded checkpoint. Every checkpoint
// tensor becomes a graph initializer (the checkpoint reader already sorted
// them by name, keeping serialization deterministic), and a single node in
// the custom domain consumes the declared inputs plus all weights.
func buildModel(spec modelSpec, cp *checkpoint.Checkpoint) *onnx.Model {
	initializers := make([]onnx.Initializer, 0, len(cp.Tensors))
	nodeInputs := make([]string, 0, len(spec.inputs)+len(cp.Tensors))
	for _, vi := range spec.inputs {
		nodeInputs = append(nodeInputs, vi.Name)
	}
	for _, t := range cp.Tensors {
		initializers = append(initializers, onnx.Initializer{
			Name: t.Name,
			Type: t.Type,
			Dims: t.Dims,
			Raw:  t.Raw,
		})
		nodeInputs = append(nodeInputs, t.Name)
	}

	nodeOutputs := make([]string, 0, len(spec.outputs))
	for _, vi := range spec.outputs {
		nodeOutputs = append(nodeOutputs, vi.Name)
	}

	return &onnx.Model{
		IRVersion:       irVersion,
		ProducerName:    producerName,
		ProducerVersion: producerVersion,
		ModelVersion:    1,
		DocString:       spec.docString,
		Opsets: []onnx.OpsetImport{
			{Domain: "", Version: spec.opset},
			{Domain: customDomain, Version: 1},
		},
		Metadata: spec.metadata,
		Graph: onnx.Graph{
			Name:    spec.graphName,
			Inputs:  spec.inputs,
			Outputs: spec.outputs,
			Nodes: []onnx.Node{{
				Name:    spec.graphName + "_0",
				OpType:  spec.opType,
				Domain:  customDomain,
				Inputs:  nodeInputs,
				Outputs: nodeOutputs,
			}},
			Initializers: initializers,
		},
	}
}
