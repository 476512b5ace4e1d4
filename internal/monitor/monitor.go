// Package monitor renders a live terminal view of an update lifecycle.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pushchain/autoupdate/internal/update"
)

const (
	defaultRefresh      = 100 * time.Millisecond
	defaultHistoryLimit = 8
)

type keyMap struct {
	Quit key.Binding
	Help key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit, k.Help}}
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h", "toggle help"),
		),
	}
}

// tickCmd returns a command that sends a tick message after interval
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the Bubble Tea model driving the monitor. Each tick runs one
// host poll of the AutoUpdate bundle.
type Model struct {
	opts     Options
	data     Data
	started  time.Time
	registry *ComponentRegistry
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	width    int
	height   int
	showHelp bool
	done     bool
}

// New creates a monitor for opts.Update.
func New(opts Options) *Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaultRefresh
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.Candidate == nil {
		opts.Candidate = func() string { return "" }
	}

	registry := NewComponentRegistry()
	registry.Register(newHeader())
	registry.Register(newStatusPanel(opts.NoEmoji))
	registry.Register(newReleasePanel())
	registry.Register(newHistoryPanel())

	// style is set in Init, after the alt screen is active
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &Model{
		opts:     opts,
		registry: registry,
		keys:     newKeyMap(),
		help:     help.New(),
		spinner:  s,
		data: Data{
			Current:    opts.Update.Current.String(),
			Constraint: opts.Update.Constraint.String(),
			AppVersion: opts.AppVersion,
		},
	}
}

// Init starts the updater and the poll loop.
func (m *Model) Init() tea.Cmd {
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	m.started = time.Now()
	m.opts.Update.Start()
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return tickMsg(time.Now()) })
}

// Update handles messages (Bubble Tea lifecycle)
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			return m, func() tea.Msg { return toggleHelpMsg{} }
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		// checked before polling so the final status is observed
		finished := workerDone(m.opts.Done)
		m.poll(time.Time(msg))
		cmds := m.registry.UpdateAll(msg, m.data)
		if m.opts.ExitOnSettled && (finished || m.data.Status.IsSettled()) {
			m.done = true
			return m, tea.Sequence(tea.Batch(cmds...), tea.Quit)
		}
		cmds = append(cmds, tickCmd(m.opts.RefreshInterval))
		return m, tea.Batch(cmds...)

	case toggleHelpMsg:
		m.showHelp = !m.showHelp
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.data.Spinner = m.spinner.View()
		cmds := m.registry.UpdateAll(msg, m.data)
		return m, tea.Batch(append(cmds, cmd)...)
	}

	return m, nil
}

// poll runs one host tick and records a transition when the status moved.
func (m *Model) poll(now time.Time) {
	a := m.opts.Update
	st := a.Poll()
	first := len(m.data.History) == 0
	if first || a.Changed() {
		m.data.History = append(m.data.History, Transition{At: now, Status: st})
		if n := len(m.data.History) - m.opts.HistoryLimit; n > 0 {
			m.data.History = m.data.History[n:]
		}
	}
	m.data.Status = st
	m.data.Candidate = m.opts.Candidate()
	if !m.started.IsZero() {
		m.data.Elapsed = now.Sub(m.started)
	}
}

func workerDone(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// View renders the monitor (Bubble Tea lifecycle)
func (m *Model) View() string {
	if m.width <= 0 {
		return ""
	}

	if m.showHelp {
		return lipgloss.Place(
			m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(borderColor).
				Padding(1, 2).
				Render(m.help.FullHelpView(m.keys.FullHelp())),
		)
	}

	header := m.registry.Get("header").View(m.width)
	status := m.registry.Get("status")
	release := m.registry.Get("release")

	var middle string
	if m.width >= 80 {
		left := m.width / 2
		middle = lipgloss.JoinHorizontal(lipgloss.Top,
			status.View(left),
			release.View(m.width-left),
		)
	} else {
		middle = lipgloss.JoinVertical(lipgloss.Left, status.View(m.width), release.View(m.width))
	}

	footer := lipgloss.NewStyle().Foreground(dimColor).Render(m.help.ShortHelpView(m.keys.ShortHelp()))
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		middle,
		m.registry.Get("history").View(m.width),
		footer,
	)
}

// Status returns the last polled status.
func (m *Model) Status() update.Status {
	return m.data.Status
}

// Run drives the monitor on the terminal until the user quits, the status
// settles (with ExitOnSettled) or ctx is cancelled. It returns the last
// polled status.
func Run(ctx context.Context, opts Options, programOpts ...tea.ProgramOption) (update.Status, error) {
	m := New(opts)
	programOpts = append([]tea.ProgramOption{tea.WithContext(ctx)}, programOpts...)
	p := tea.NewProgram(m, programOpts...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return m.Status(), err
	}
	return m.Status(), nil
}
