// Package logging builds the application logger. Output goes to a rotating
// file because the terminal belongs to the UI.
package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/0xlemi/tunerec/internal/config"
)

// Level maps a configured level to its slog equivalent
func Level(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to the configured file and the closer that
// flushes it. An empty file name discards all output.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), io.NopCloser(nil)
	}
	w := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: 3,
	}
	return NewWithWriter(w, cfg.Level), w
}

// NewWithWriter returns a text logger writing to w
func NewWithWriter(w io.Writer, level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level(level)}))
}
