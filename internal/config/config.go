package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir      string `toml:"log_dir"`
	JournalPath string `toml:"journal_path"`
}

// Export contains the knobs the exporters bake into the emitted models and
// the dummy-input shapes used to pin example dimensions.
type Export struct {
	Device              string  `toml:"device"`
	Opset               int64   `toml:"opset"`
	SequenceLength      int64   `toml:"sequence_length"`
	MelBins             int64   `toml:"mel_bins"`
	MelFrames           int64   `toml:"mel_frames"`
	SpeakerEmbeddingDim int64   `toml:"speaker_embedding_dim"`
	NoiseScale          float64 `toml:"noise_scale"`
	NoiseScaleW         float64 `toml:"noise_scale_w"`
	LengthScale         float64 `toml:"length_scale"`
	SDPRatio            float64 `toml:"sdp_ratio"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration document.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Export  Export  `toml:"export"`
	Logging Logging `toml:"logging"`
}

// Load reads the configuration from path, or from the default location when
// path is empty. It returns the effective config, the resolved path, and
// whether a file existed there. A missing file is not an error: defaults
// apply.
func Load(path string) (*Config, string, bool, error) {
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	raw, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, resolved, false, err
		}
		return cfg, resolved, false, nil
	case err != nil:
		return nil, resolved, false, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, resolved, true, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg.applyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, resolved, true, err
	}
	return cfg, resolved, true, nil
}

func (c *Config) applyEnvOverrides() {
	if device := strings.TrimSpace(os.Getenv("MELOCONV_DEVICE")); device != "" {
		c.Export.Device = device
	}
	if level := strings.TrimSpace(os.Getenv("MELOCONV_LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
}

// DefaultConfigPath returns ~/.config/meloconv/config.toml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "meloconv", "config.toml"), nil
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("determine home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}

// CreateSample writes the embedded sample configuration to target.
func CreateSample(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(target, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the config points at.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, filepath.Dir(c.Paths.JournalPath)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return ExpandPath(path)
	}
	return DefaultConfigPath()
}
