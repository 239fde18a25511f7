package export

import (
	"strconv"

	"meloconv/internal/checkpoint"
	"meloconv/internal/config"
	"meloconv/internal/onnx"
)

// buildVocoderModel assembles the ONNX model for the vocoder: one mel
// spectrogram input, variable-length on its time axis, one audio output,
// variable-length on its sample axis. The example mel window is
// (1, cfg.MelBins, cfg.MelFrames).
func buildVocoderModel(cp *checkpoint.Checkpoint, cfg config.Export) *onnx.Model {
	inputs := []onnx.ValueInfo{
		{Name: "mel", Type: onnx.Float, Dims: []onnx.Dim{
			onnx.Fixed(1),
			onnx.Fixed(cfg.MelBins),
			onnx.Dynamic("time_length"),
		}},
	}

	outputs := []onnx.ValueInfo{
		{Name: "audio", Type: onnx.Float, Dims: []onnx.Dim{
			onnx.Fixed(1),
			onnx.Dynamic("audio_length"),
		}},
	}

	metadata := []onnx.MetadataProp{
		{Key: "example_mel_bins", Value: strconv.FormatInt(cfg.MelBins, 10)},
		{Key: "example_mel_frames", Value: strconv.FormatInt(cfg.MelFrames, 10)},
	}

	return buildModel(modelSpec{
		graphName: "vocoder",
		opType:    "MeloTTSVocoder",
		docString: "MeloTTS vocoder: mel spectrogram to waveform",
		opset:     cfg.Opset,
		inputs:    inputs,
		outputs:   outputs,
		metadata:  metadata,
	}, cp)
}
