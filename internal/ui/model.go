package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xlemi/tunerec/internal/pitch"
	"github.com/0xlemi/tunerec/internal/session"
)

// How long to keep showing a note after detection stops returning one
const noteHoldDuration = 500 * time.Millisecond

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	stateStyles = map[session.State]lipgloss.Style{
		session.Idle:      lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		session.Recording: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000")),
		session.Playing:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00")),
	}

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}
)

type keyMap struct {
	Record key.Binding
	Play   key.Binding
	Stop   key.Binding
	Write  key.Binding
	Input  key.Binding
	Output key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Record, k.Play, k.Stop, k.Write, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Record, k.Play, k.Stop, k.Write},
		{k.Input, k.Output, k.Quit},
	}
}

var keys = keyMap{
	Record: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record")),
	Play:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
	Stop:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	Write:  key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "write wav")),
	Input:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "next input")),
	Output: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "next output")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// TickMsg represents a timer tick
type TickMsg time.Time

// StateMsg carries a session state change
type StateMsg session.Event

// Options configures the model
type Options struct {
	FileName   string
	Seconds    int
	TickPeriod time.Duration
}

// Model represents the UI state
type Model struct {
	session *session.Session
	opts    Options
	events  chan session.Event

	status    session.Status
	note      *pitch.Estimate
	noteSeen  time.Time
	inputs    []string
	outputs   []string
	message   string
	err       error
	keys      keyMap
	help      help.Model
	progress  progress.Model
	width     int
	showHelp  bool
}

// NewModel creates a UI model driving sess
func NewModel(sess *session.Session, opts Options) Model {
	events := make(chan session.Event, 16)
	m := Model{
		session:  sess,
		opts:     opts,
		events:   events,
		keys:     keys,
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient()),
	}

	sess.Subscribe(func(ev session.Event) {
		// Tick runs inside Update, so never block here
		select {
		case events <- ev:
		default:
		}
	})

	var err error
	if m.inputs, err = sess.Drivers(true); err != nil {
		m.err = err
	}
	if m.outputs, err = sess.Drivers(false); err != nil {
		m.err = err
	}
	m.status = sess.Status()
	return m
}

// Init initializes the UI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), waitForEvent(m.events))
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.TickPeriod, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForEvent(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		return StateMsg(<-ch)
	}
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(msg.Width-4, 10)
		m.help.Width = msg.Width

	case TickMsg:
		m.status = m.session.Tick()
		now := time.Time(msg)
		if m.status.Pitch != nil {
			m.note = m.status.Pitch
			m.noteSeen = now
		} else if m.note != nil && now.Sub(m.noteSeen) > noteHoldDuration {
			m.note = nil
		}
		return m, m.tick()

	case StateMsg:
		ev := session.Event(msg)
		m.status = m.session.Status()
		switch {
		case ev.Err != nil:
			m.err = ev.Err
		case ev.From == session.Recording && ev.To == session.Idle:
			m.message = fmt.Sprintf("recorded %s", formatDuration(ev.Target))
		case ev.From == session.Playing && ev.To == session.Idle:
			m.message = "playback finished"
		}
		return m, waitForEvent(m.events)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		if err := m.session.Stop(); err != nil {
			m.err = err
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Record):
		if err := m.session.StartCapture(m.opts.Seconds); err != nil {
			m.err = err
			break
		}
		m.message = fmt.Sprintf("recording up to %ds", m.opts.Seconds)

	case key.Matches(msg, m.keys.Play):
		if !m.session.HasBuffer() && m.session.State() == session.Idle {
			if err := m.session.Load(m.opts.FileName); err != nil {
				m.err = err
				break
			}
		}
		if err := m.session.StartPlayback(); err != nil {
			m.err = err
			break
		}
		m.message = "playing"

	case key.Matches(msg, m.keys.Stop):
		if err := m.session.Stop(); err != nil {
			m.err = err
		}

	case key.Matches(msg, m.keys.Write):
		path, err := m.session.Save(m.opts.FileName)
		if err != nil {
			m.err = err
			break
		}
		m.message = "saved " + path

	case key.Matches(msg, m.keys.Input):
		m.cycleDriver(true)

	case key.Matches(msg, m.keys.Output):
		m.cycleDriver(false)

	case msg.String() == "?":
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}

	m.status = m.session.Status()
	return m, nil
}

func (m *Model) cycleDriver(capture bool) {
	names, current, sel := m.outputs, m.session.OutputDriver(), m.session.SelectOutputDriver
	if capture {
		names, current, sel = m.inputs, m.session.InputDriver(), m.session.SelectInputDriver
	}
	if len(names) == 0 {
		return
	}
	next := (current + 1) % len(names)
	if err := sel(next); err != nil {
		m.err = err
		return
	}
	m.message = "driver: " + names[next]
}

func driverName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "(none)"
	}
	return names[i]
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// Get the next natural note (for sharp note colors)
func getNextNote(note string) string {
	switch note {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	default:
		return "C"
	}
}

// renderNote draws the note box. Sharps are split between the colors of the
// two naturals around them.
func renderNote(n pitch.Note) string {
	text := n.String()
	if !strings.HasSuffix(n.Name, "#") {
		return lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color(noteColors[n.Name])).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333333")).
			Padding(2, 4).
			MarginBottom(1).
			Render(text)
	}

	base := n.Name[:1]
	half := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		BorderTop(true).
		BorderBottom(true).
		PaddingTop(2).
		PaddingBottom(2)

	left := half.
		Background(lipgloss.Color(noteColors[base])).
		BorderLeft(true).
		BorderRight(false).
		PaddingLeft(2).
		PaddingRight(1)
	right := half.
		Background(lipgloss.Color(noteColors[getNextNote(base)])).
		BorderLeft(false).
		BorderRight(true).
		PaddingLeft(1).
		PaddingRight(2)

	return left.Render(base) + right.Render(text[1:])
}

// View renders the UI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TuneRec - Recorder & Pitch Detector"))
	b.WriteString("\n")

	st := m.status
	b.WriteString(stateStyles[st.State].Render(strings.ToUpper(st.State.String())))
	switch st.State {
	case session.Recording:
		fmt.Fprintf(&b, "  %s / %ds", formatDuration(st.Elapsed), m.opts.Seconds)
	case session.Playing:
		fmt.Fprintf(&b, "  %s / %s  %3.0f%%", formatDuration(st.Elapsed), formatDuration(st.Target), st.Progress()*100)
	default:
		if st.Target > 0 {
			fmt.Fprintf(&b, "  length %s", formatDuration(st.Target))
		}
	}
	b.WriteString("\n")

	if st.State == session.Playing {
		b.WriteString(m.progress.ViewAs(st.Progress()))
		b.WriteString("\n")
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("in: %s | out: %s | file: %s.wav",
		driverName(m.inputs, m.session.InputDriver()),
		driverName(m.outputs, m.session.OutputDriver()),
		m.opts.FileName)))
	b.WriteString("\n\n")

	if m.note != nil {
		if n, err := pitch.NoteAt(m.note.NoteIndex); err == nil {
			b.WriteString(renderNote(n))
			b.WriteString("\n")
		}
		b.WriteString(infoStyle.Render(fmt.Sprintf("Frequency: %.2f Hz | Note: %.2f Hz | Cents: %+.1f",
			m.note.DominantFrequency, m.note.NoteFrequency, m.note.Cents)))
	} else if st.State != session.Idle {
		b.WriteString(infoStyle.Render("Listening for audio..."))
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	} else if m.message != "" {
		b.WriteString(infoStyle.Render(m.message))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}
