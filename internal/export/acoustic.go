package export

import (
	"strconv"

	"meloconv/internal/checkpoint"
	"meloconv/internal/config"
	"meloconv/internal/onnx"
)

// buildAcousticModel assembles the ONNX model for the acoustic network.
// Input and output tensor names are fixed by the downstream inference
// runtime; the three sequence inputs are variable-length on axis 0 and z_p is
// variable-length on axis 1. The example dimensions stand in for traced dummy
// inputs: a sequence of cfg.SequenceLength phonemes, a
// (1, cfg.SpeakerEmbeddingDim, 1) speaker embedding, and four scalar
// synthesis knobs whose defaults are recorded as model metadata.
func buildAcousticModel(cp *checkpoint.Checkpoint, cfg config.Export) *onnx.Model {
	inputs := []onnx.ValueInfo{
		{Name: "phone", Type: onnx.Int64, Dims: []onnx.Dim{onnx.Dynamic("phoneme_length")}},
		{Name: "tone", Type: onnx.Int64, Dims: []onnx.Dim{onnx.Dynamic("tone_length")}},
		{Name: "language", Type: onnx.Int64, Dims: []onnx.Dim{onnx.Dynamic("language_length")}},
		{Name: "g", Type: onnx.Float, Dims: []onnx.Dim{onnx.Fixed(1), onnx.Fixed(cfg.SpeakerEmbeddingDim), onnx.Fixed(1)}},
		{Name: "noise_scale", Type: onnx.Float, Dims: []onnx.Dim{onnx.Fixed(1)}},
		{Name: "noise_scale_w", Type: onnx.Float, Dims: []onnx.Dim{onnx.Fixed(1)}},
		{Name: "length_scale", Type: onnx.Float, Dims: []onnx.Dim{onnx.Fixed(1)}},
		{Name: "sdp_ratio", Type: onnx.Float, Dims: []onnx.Dim{onnx.Fixed(1)}},
	}

	outputs := []onnx.ValueInfo{
		{Name: "z_p", Type: onnx.Float, Dims: []onnx.Dim{onnx.Fixed(1), onnx.Dynamic("output_length"), onnx.Unknown()}},
		{Name: "pronoun_lens", Type: onnx.Int64, Dims: []onnx.Dim{onnx.Fixed(1)}},
		{Name: "audio_len", Type: onnx.Int64, Dims: []onnx.Dim{onnx.Fixed(1)}},
	}

	metadata := []onnx.MetadataProp{
		{Key: "example_sequence_length", Value: strconv.FormatInt(cfg.SequenceLength, 10)},
		{Key: "default_noise_scale", Value: formatKnob(cfg.NoiseScale)},
		{Key: "default_noise_scale_w", Value: formatKnob(cfg.NoiseScaleW)},
		{Key: "default_length_scale", Value: formatKnob(cfg.LengthScale)},
		{Key: "default_sdp_ratio", Value: formatKnob(cfg.SDPRatio)},
	}

	return buildModel(modelSpec{
		graphName: "acoustic_model",
		opType:    "MeloTTSAcoustic",
		docString: "MeloTTS acoustic model: phoneme, tone and language sequences to latent frames",
		opset:     cfg.Opset,
		inputs:    inputs,
		outputs:   outputs,
		metadata:  metadata,
	}, cp)
}

func formatKnob(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
