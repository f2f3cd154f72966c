package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) = %v", err)
	}
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
audio:
  record_seconds: 30
  input_driver: 2
analysis:
  window: blackman
  monitor_capture: true
ui:
  tick_period: 50ms
log:
  level: debug
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Audio.RecordSeconds != 30 || cfg.Audio.InputDriver != 2 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.BitDepth != 16 {
		t.Errorf("defaults lost: %+v", cfg.Audio)
	}
	if cfg.Analysis.Window != "blackman" || !cfg.Analysis.MonitorCapture {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.UI.TickPeriod != 50*time.Millisecond {
		t.Errorf("tick_period = %v, want 50ms", cfg.UI.TickPeriod)
	}
	if cfg.Log.Level != LogDebug {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
}

func TestLoadFromReaderEmpty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader(empty): %v", err)
	}
	if cfg.UI.TickPeriod != 76*time.Millisecond {
		t.Errorf("tick_period = %v, want default", cfg.UI.TickPeriod)
	}
}

func TestLoadFromReaderUnknownKey(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("audio:\n  samplerate: 48000\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		wants []string
	}{
		{
			name:  "bad audio",
			yaml:  "audio:\n  record_seconds: 0\n  bit_depth: 24\n",
			wants: []string{"record_seconds", "bit_depth"},
		},
		{
			name:  "bad analysis",
			yaml:  "analysis:\n  window: kaiser\n  noise_floor: -1\n",
			wants: []string{"analysis.window", "noise_floor"},
		},
		{
			name:  "bad ui and log",
			yaml:  "ui:\n  tick_period: 0s\n  file_name: \"\"\nlog:\n  level: verbose\n",
			wants: []string{"tick_period", "file_name", "log.level"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			for _, want := range tt.wants {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error should mention %s, got: %v", want, err)
				}
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunerec.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  file_name: session\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UI.FileName != "session" {
		t.Errorf("file_name = %q", cfg.UI.FileName)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFlagsApplyOnlyChanged(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := AddFlags(fs)
	if err := fs.Parse([]string{"--seconds", "4", "-f", "demo", "--monitor"}); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Audio.InputDriver = 3
	if err := flags.Apply(cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cfg.Audio.RecordSeconds != 4 || cfg.UI.FileName != "demo" || !cfg.Analysis.MonitorCapture {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Audio.InputDriver != 3 {
		t.Errorf("unset flag overwrote input_driver: %d", cfg.Audio.InputDriver)
	}
}

func TestFlagsApplyValidates(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := AddFlags(fs)
	if err := fs.Parse([]string{"--log-level", "loud"}); err != nil {
		t.Fatal(err)
	}
	if err := flags.Apply(Default()); err == nil || !strings.Contains(err.Error(), "log.level") {
		t.Errorf("Apply err = %v, want log.level error", err)
	}
}
