package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/0xlemi/tunerec/internal/audio"
	"github.com/0xlemi/tunerec/internal/session"
)

func newRecordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "record [name]",
		Short: "Record from the input driver and save it as <name>.wav",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.fileName(args)
			sess, engine, err := a.newSession()
			if err != nil {
				return err
			}
			defer engine.Close()
			defer sess.Close()

			out := cmd.OutOrStdout()
			defer sess.Subscribe(printEvent(out))()

			if err := sess.StartCapture(a.cfg.Audio.RecordSeconds); err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			if err := sess.Run(ctx, a.cfg.UI.TickPeriod, printStatus(out)); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			path, err := sess.Save(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "saved %s (%.1fs)\n", path, sess.Status().Target.Seconds())
			return nil
		},
	}
}

func newPlayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play [name]",
		Short: "Play <name>.wav on the output driver and show its pitch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.fileName(args)
			sess, engine, err := a.newSession()
			if err != nil {
				return err
			}
			defer engine.Close()
			defer sess.Close()

			out := cmd.OutOrStdout()
			defer sess.Subscribe(printEvent(out))()

			if err := sess.Load(name); err != nil {
				return err
			}
			if err := sess.StartPlayback(); err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			if err := sess.Run(ctx, a.cfg.UI.TickPeriod, printStatus(out)); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func newDevicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture and playback drivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := audio.NewPortAudioEngine(a.log, a.cfg.Audio.FramesPerBuffer, a.cfg.Analysis.SpectrumBins)
			if err != nil {
				return err
			}
			defer engine.Close()

			out := cmd.OutOrStdout()
			for _, list := range []struct {
				title    string
				capture  bool
				selected int
			}{
				{"Input drivers", true, a.cfg.Audio.InputDriver},
				{"Output drivers", false, a.cfg.Audio.OutputDriver},
			} {
				names, err := engine.Drivers(list.capture)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s:\n", list.title)
				printDrivers(out, names, list.selected)
			}
			return nil
		},
	}
}

func (a *app) fileName(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return a.cfg.UI.FileName
}

func printDrivers(w io.Writer, names []string, selected int) {
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, name := range names {
		mark := " "
		if i == selected {
			mark = "*"
		}
		fmt.Fprintf(w, " %s%2d  %s\n", mark, i, name)
	}
}

func printEvent(w io.Writer) func(session.Event) {
	return func(ev session.Event) {
		if ev.Err != nil {
			fmt.Fprintf(w, "\n%s -> %s: %v\n", ev.From, ev.To, ev.Err)
			return
		}
		fmt.Fprintf(w, "\n%s -> %s\n", ev.From, ev.To)
	}
}

func printStatus(w io.Writer) func(session.Status) {
	return func(st session.Status) {
		if st.State == session.Idle {
			return
		}
		if st.Pitch == nil {
			fmt.Fprintf(w, "\r%-9s %6.1fs", st.State, st.Elapsed.Seconds())
			return
		}
		fmt.Fprintf(w, "\r%-9s %6.1fs  %-4s %9.2f Hz %+6.1f cents",
			st.State, st.Elapsed.Seconds(), st.Pitch.NoteName, st.Pitch.DominantFrequency, st.Pitch.Cents)
	}
}
