// Package config holds the recorder's settings and loads them from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/0xlemi/tunerec/internal/audio"
)

// LogLevel is the minimum level written to the log file
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the top-level configuration
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Analysis AnalysisConfig `yaml:"analysis"`
	UI       UIConfig       `yaml:"ui"`
	Log      LogConfig      `yaml:"log"`
}

// AudioConfig describes the capture format and devices
type AudioConfig struct {
	SampleRate      int `yaml:"sample_rate"`
	Channels        int `yaml:"channels"`
	BitDepth        int `yaml:"bit_depth"`
	RecordSeconds   int `yaml:"record_seconds"`
	InputDriver     int `yaml:"input_driver"`
	OutputDriver    int `yaml:"output_driver"`
	FramesPerBuffer int `yaml:"frames_per_buffer"`
}

// Format returns the capture format
func (a AudioConfig) Format() audio.Format {
	return audio.Format{Channels: a.Channels, BitDepth: a.BitDepth, SampleRate: a.SampleRate}
}

// AnalysisConfig controls pitch detection
type AnalysisConfig struct {
	SpectrumBins   int     `yaml:"spectrum_bins"`
	Window         string  `yaml:"window"`
	NoiseFloor     float64 `yaml:"noise_floor"`
	MonitorCapture bool    `yaml:"monitor_capture"`
}

// UIConfig controls the terminal interface
type UIConfig struct {
	TickPeriod time.Duration `yaml:"tick_period"`
	FileName   string        `yaml:"file_name"`
}

// LogConfig controls the rotating log file
type LogConfig struct {
	Level     LogLevel `yaml:"level"`
	File      string   `yaml:"file"`
	MaxSizeMB int      `yaml:"max_size_mb"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      44100,
			Channels:        1,
			BitDepth:        16,
			RecordSeconds:   10,
			FramesPerBuffer: 512,
		},
		Analysis: AnalysisConfig{
			SpectrumBins: audio.DefaultSpectrumBins,
			Window:       "hann",
			NoiseFloor:   0.01,
		},
		UI: UIConfig{
			TickPeriod: 76 * time.Millisecond,
			FileName:   "take",
		},
		Log: LogConfig{
			Level:     LogInfo,
			File:      "tunerec.log",
			MaxSizeMB: 5,
		},
	}
}

// Load reads the YAML configuration file at path over the defaults and
// validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults. Unknown keys are an
// error.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Audio
	if err := cfg.Audio.Format().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if cfg.Audio.BitDepth != 16 {
		errs = append(errs, fmt.Errorf("audio.bit_depth %d is unsupported; only 16-bit PCM is recorded", cfg.Audio.BitDepth))
	}
	if cfg.Audio.RecordSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.record_seconds must be positive, got %d", cfg.Audio.RecordSeconds))
	}
	if cfg.Audio.InputDriver < 0 {
		errs = append(errs, fmt.Errorf("audio.input_driver must not be negative, got %d", cfg.Audio.InputDriver))
	}
	if cfg.Audio.OutputDriver < 0 {
		errs = append(errs, fmt.Errorf("audio.output_driver must not be negative, got %d", cfg.Audio.OutputDriver))
	}
	if cfg.Audio.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer must be positive, got %d", cfg.Audio.FramesPerBuffer))
	}

	// Analysis
	if cfg.Analysis.SpectrumBins <= 0 {
		errs = append(errs, fmt.Errorf("analysis.spectrum_bins must be positive, got %d", cfg.Analysis.SpectrumBins))
	}
	if _, err := audio.WindowByName(cfg.Analysis.Window); err != nil {
		errs = append(errs, fmt.Errorf("analysis.window: %w; valid values: %v", err, audio.WindowNames()))
	}
	if cfg.Analysis.NoiseFloor < 0 {
		errs = append(errs, fmt.Errorf("analysis.noise_floor %.3f must not be negative", cfg.Analysis.NoiseFloor))
	}

	// UI
	if cfg.UI.TickPeriod <= 0 {
		errs = append(errs, fmt.Errorf("ui.tick_period must be positive, got %v", cfg.UI.TickPeriod))
	}
	if cfg.UI.FileName == "" {
		errs = append(errs, errors.New("ui.file_name is required"))
	}

	// Log
	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Log.MaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("log.max_size_mb must not be negative, got %d", cfg.Log.MaxSizeMB))
	}

	return errors.Join(errs...)
}
