package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags holds command-line overrides. Only flags the user set are applied on
// top of the loaded file.
type Flags struct {
	fs *pflag.FlagSet

	seconds      int
	inputDriver  int
	outputDriver int
	window       string
	monitor      bool
	tickPeriod   time.Duration
	fileName     string
	logLevel     string
	logFile      string
}

// AddFlags registers the override flags on fs
func AddFlags(fs *pflag.FlagSet) *Flags {
	d := Default()
	f := &Flags{fs: fs}
	fs.IntVarP(&f.seconds, "seconds", "s", d.Audio.RecordSeconds, "maximum recording length in seconds")
	fs.IntVarP(&f.inputDriver, "input", "i", d.Audio.InputDriver, "capture driver index")
	fs.IntVarP(&f.outputDriver, "output", "o", d.Audio.OutputDriver, "playback driver index")
	fs.StringVar(&f.window, "window", d.Analysis.Window, "spectrum window function")
	fs.BoolVar(&f.monitor, "monitor", d.Analysis.MonitorCapture, "detect pitch while recording")
	fs.DurationVar(&f.tickPeriod, "tick", d.UI.TickPeriod, "session tick period")
	fs.StringVarP(&f.fileName, "file", "f", d.UI.FileName, "recording name, saved as <name>.wav")
	fs.StringVar(&f.logLevel, "log-level", string(d.Log.Level), "log level (debug, info, warn, error)")
	fs.StringVar(&f.logFile, "log-file", d.Log.File, "log file path")
	return f
}

// Apply copies the flags that were set onto cfg and revalidates it
func (f *Flags) Apply(cfg *Config) error {
	if f.fs.Changed("seconds") {
		cfg.Audio.RecordSeconds = f.seconds
	}
	if f.fs.Changed("input") {
		cfg.Audio.InputDriver = f.inputDriver
	}
	if f.fs.Changed("output") {
		cfg.Audio.OutputDriver = f.outputDriver
	}
	if f.fs.Changed("window") {
		cfg.Analysis.Window = f.window
	}
	if f.fs.Changed("monitor") {
		cfg.Analysis.MonitorCapture = f.monitor
	}
	if f.fs.Changed("tick") {
		cfg.UI.TickPeriod = f.tickPeriod
	}
	if f.fs.Changed("file") {
		cfg.UI.FileName = f.fileName
	}
	if f.fs.Changed("log-level") {
		cfg.Log.Level = LogLevel(f.logLevel)
	}
	if f.fs.Changed("log-file") {
		cfg.Log.File = f.logFile
	}
	return Validate(cfg)
}
