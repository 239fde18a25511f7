package config

import (
	"os"
	"path/filepath"
)

// Dummy-input defaults mirror the values the reference exporter feeds the
// tracer: a length-10 phoneme sequence, a (1, 256, 1) speaker embedding, an
// (1, 80, 100) mel window, and the four synthesis knobs.
const (
	DefaultOpset               int64   = 13
	DefaultSequenceLength      int64   = 10
	DefaultMelBins             int64   = 80
	DefaultMelFrames           int64   = 100
	DefaultSpeakerEmbeddingDim int64   = 256
	DefaultNoiseScale          float64 = 0.667
	DefaultNoiseScaleW         float64 = 0.8
	DefaultLengthScale         float64 = 1.0
	DefaultSDPRatio            float64 = 0.2
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	dataDir := filepath.Join(userHome(), ".local", "share", "meloconv")
	return &Config{
		Paths: Paths{
			LogDir:      filepath.Join(dataDir, "logs"),
			JournalPath: filepath.Join(dataDir, "journal.db"),
		},
		Export: Export{
			Device:              "cpu",
			Opset:               DefaultOpset,
			SequenceLength:      DefaultSequenceLength,
			MelBins:             DefaultMelBins,
			MelFrames:           DefaultMelFrames,
			SpeakerEmbeddingDim: DefaultSpeakerEmbeddingDim,
			NoiseScale:          DefaultNoiseScale,
			NoiseScaleW:         DefaultNoiseScaleW,
			LengthScale:         DefaultLengthScale,
			SDPRatio:            DefaultSDPRatio,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// fillDefaults replaces zero values left by a partial config file.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Paths.LogDir == "" {
		c.Paths.LogDir = def.Paths.LogDir
	}
	if c.Paths.JournalPath == "" {
		c.Paths.JournalPath = def.Paths.JournalPath
	}
	if c.Export.Device == "" {
		c.Export.Device = def.Export.Device
	}
	if c.Export.Opset == 0 {
		c.Export.Opset = def.Export.Opset
	}
	if c.Export.SequenceLength == 0 {
		c.Export.SequenceLength = def.Export.SequenceLength
	}
	if c.Export.MelBins == 0 {
		c.Export.MelBins = def.Export.MelBins
	}
	if c.Export.MelFrames == 0 {
		c.Export.MelFrames = def.Export.MelFrames
	}
	if c.Export.SpeakerEmbeddingDim == 0 {
		c.Export.SpeakerEmbeddingDim = def.Export.SpeakerEmbeddingDim
	}
	if c.Export.NoiseScale == 0 {
		c.Export.NoiseScale = def.Export.NoiseScale
	}
	if c.Export.NoiseScaleW == 0 {
		c.Export.NoiseScaleW = def.Export.NoiseScaleW
	}
	if c.Export.LengthScale == 0 {
		c.Export.LengthScale = def.Export.LengthScale
	}
	if c.Export.SDPRatio == 0 {
		c.Export.SDPRatio = def.Export.SDPRatio
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
