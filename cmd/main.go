package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/0xlemi/tunerec/internal/audio"
	"github.com/0xlemi/tunerec/internal/config"
	"github.com/0xlemi/tunerec/internal/logging"
	"github.com/0xlemi/tunerec/internal/pitch"
	"github.com/0xlemi/tunerec/internal/session"
	"github.com/0xlemi/tunerec/internal/ui"
)

// app carries what every subcommand needs once flags are parsed
type app struct {
	configPath string
	flags      *config.Flags

	cfg       *config.Config
	log       *slog.Logger
	logCloser io.Closer
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "tunerec",
		Short:        "Record, play back and name the pitch of audio",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logCloser != nil {
				a.logCloser.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	a.flags = config.AddFlags(root.PersistentFlags())

	root.AddCommand(
		newRecordCmd(a),
		newPlayCmd(a),
		newDevicesCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	if err := a.flags.Apply(cfg); err != nil {
		return err
	}
	a.cfg = cfg
	a.log, a.logCloser = logging.New(cfg.Log)
	slog.SetDefault(a.log)
	return nil
}

// newSession opens the audio engine and builds a session from the config.
// The caller closes the returned engine.
func (a *app) newSession() (*session.Session, audio.Engine, error) {
	engine, err := audio.NewPortAudioEngine(a.log, a.cfg.Audio.FramesPerBuffer, a.cfg.Analysis.SpectrumBins)
	if err != nil {
		return nil, nil, err
	}

	window, err := audio.WindowByName(a.cfg.Analysis.Window)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}

	detector := pitch.NewSpectrumDetector()
	detector.SetNoiseFloor(a.cfg.Analysis.NoiseFloor)

	sess := session.New(engine, detector,
		session.WithFormat(a.cfg.Audio.Format()),
		session.WithSpectrum(a.cfg.Analysis.SpectrumBins, window),
		session.WithCaptureMonitoring(a.cfg.Analysis.MonitorCapture),
		session.WithLogger(a.log),
	)
	if err := sess.SelectInputDriver(a.cfg.Audio.InputDriver); err != nil {
		engine.Close()
		return nil, nil, err
	}
	if err := sess.SelectOutputDriver(a.cfg.Audio.OutputDriver); err != nil {
		engine.Close()
		return nil, nil, err
	}
	return sess, engine, nil
}

func (a *app) runTUI() error {
	sess, engine, err := a.newSession()
	if err != nil {
		return err
	}
	defer engine.Close()
	defer sess.Close()

	model := ui.NewModel(sess, ui.Options{
		FileName:   a.cfg.UI.FileName,
		Seconds:    a.cfg.Audio.RecordSeconds,
		TickPeriod: a.cfg.UI.TickPeriod,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// signalContext is cancelled on Ctrl+C so headless commands can stop early
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
