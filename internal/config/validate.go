package config

import (
	"fmt"
	"strings"
)

var validDevices = map[string]struct{}{
	"cpu":  {},
	"cuda": {},
	"auto": {},
}

// Validate checks the configuration for values the exporters cannot work
// with. It does not touch the filesystem.
func (c *Config) Validate() error {
	device := strings.ToLower(strings.TrimSpace(c.Export.Device))
	if _, ok := validDevices[device]; !ok {
		return fmt.Errorf("export.device: unsupported value %q (expected cpu, cuda, or auto)", c.Export.Device)
	}
	if c.Export.Opset < 7 {
		return fmt.Errorf("export.opset: %d is below the minimum supported opset 7", c.Export.Opset)
	}
	if c.Export.SequenceLength <= 0 {
		return fmt.Errorf("export.sequence_length: must be positive, got %d", c.Export.SequenceLength)
	}
	if c.Export.MelBins <= 0 {
		return fmt.Errorf("export.mel_bins: must be positive, got %d", c.Export.MelBins)
	}
	if c.Export.MelFrames <= 0 {
		return fmt.Errorf("export.mel_frames: must be positive, got %d", c.Export.MelFrames)
	}
	if c.Export.SpeakerEmbeddingDim <= 0 {
		return fmt.Errorf("export.speaker_embedding_dim: must be positive, got %d", c.Export.SpeakerEmbeddingDim)
	}
	if c.Export.LengthScale <= 0 {
		return fmt.Errorf("export.length_scale: must be positive, got %v", c.Export.LengthScale)
	}
	if c.Export.SDPRatio < 0 || c.Export.SDPRatio > 1 {
		return fmt.Errorf("export.sdp_ratio: must be within [0, 1], got %v", c.Export.SDPRatio)
	}
	return nil
}
