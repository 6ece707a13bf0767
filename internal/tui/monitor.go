// Package tui implements the terminal monitor and recorder views.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opencode-ai/autoclick/internal/engine"
	"github.com/opencode-ai/autoclick/internal/models"
	"github.com/opencode-ai/autoclick/internal/tui/styles"
)

const (
	defaultTailSize = 12
	statusInterval  = 200 * time.Millisecond
	minWidth        = 40
	minHeight       = 10
)

// Controller is the part of the engine the monitor drives.
type Controller interface {
	Start(ctx context.Context, cfg models.RunConfig) (string, error)
	Stop() error
	Status() engine.Status
}

// Feed is an engine.Sink that collects events for the monitor. Emit must be
// called on the program goroutine, which ProgramDispatcher guarantees.
type Feed struct {
	tail      *lineRing
	lastClick string
	summary   *engine.Summary
	alert     string
}

// NewFeed creates a feed that keeps the last size log lines.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = defaultTailSize
	}
	return &Feed{tail: newLineRing(size)}
}

// Emit records ev for display.
func (f *Feed) Emit(_ context.Context, ev engine.Event) error {
	switch ev.Kind {
	case engine.EventCountdown:
		f.lastClick = ev.Message
		return nil
	case engine.EventClick:
		f.lastClick = ev.Message
	case engine.EventEmergency, engine.EventFatal:
		f.alert = ev.Message
	case engine.EventFinished:
		f.summary = ev.Summary
	}
	f.tail.add(string(ev.Kind) + "\x00" + ev.Line())
	return nil
}

// Summary returns the finished run's summary, or nil while running.
func (f *Feed) Summary() *engine.Summary {
	return f.summary
}

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	Title  string
	Config models.RunConfig
	Styles styles.Styles
}

type startedMsg struct {
	runID string
	err   error
}

type stoppedMsg struct {
	err error
}

type statusTickMsg time.Time

// Monitor is the bubbletea model shown while a run executes.
type Monitor struct {
	ctrl   Controller
	feed   *Feed
	opts   MonitorOptions
	styles styles.Styles

	runID    string
	status   engine.Status
	err      error
	stopErr  error
	stopping bool
	quitting bool
	width    int
	height   int
}

// NewMonitor creates a monitor that starts cfg on ctrl when the program runs.
// The engine's sink must deliver into feed.
func NewMonitor(ctrl Controller, feed *Feed, opts MonitorOptions) Monitor {
	if opts.Title == "" {
		opts.Title = "autoclick"
	}
	if opts.Styles.Theme.Name == "" {
		opts.Styles = styles.DefaultStyles()
	}
	return Monitor{ctrl: ctrl, feed: feed, opts: opts, styles: opts.Styles}
}

// Err returns the start error, if the run never began.
func (m Monitor) Err() error {
	return m.err
}

// RunID returns the started run's identifier.
func (m Monitor) RunID() string {
	return m.runID
}

func (m Monitor) Init() tea.Cmd {
	return tea.Batch(m.startCmd(), statusTick())
}

func (m Monitor) startCmd() tea.Cmd {
	ctrl, cfg := m.ctrl, m.opts.Config
	return func() tea.Msg {
		id, err := ctrl.Start(context.Background(), cfg)
		return startedMsg{runID: id, err: err}
	}
}

func (m Monitor) stopCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return stoppedMsg{err: ctrl.Stop()}
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func (m Monitor) finished() bool {
	return m.err != nil || m.feed.Summary() != nil
}

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case postedMsg:
		msg.run()
	case startedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.runID = msg.runID
		m.status = m.ctrl.Status()
	case statusTickMsg:
		m.status = m.ctrl.Status()
		return m, statusTick()
	case stoppedMsg:
		m.stopping = false
		if msg.err != nil && !errors.Is(msg.err, engine.ErrNotRunning) {
			m.stopErr = msg.err
		}
		m.status = m.ctrl.Status()
		if m.quitting {
			return m, tea.Quit
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			if m.finished() || m.runID == "" {
				return m, tea.Quit
			}
			if !m.stopping {
				m.stopping = true
				return m, m.stopCmd()
			}
		case "s", " ":
			if !m.finished() && m.runID != "" && !m.stopping {
				m.stopping = true
				return m, m.stopCmd()
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m Monitor) View() string {
	if m.width > 0 && m.height > 0 && (m.width < minWidth || m.height < minHeight) {
		return m.styles.Warning.Render(fmt.Sprintf("Terminal too small (%dx%d).", m.width, m.height)) + "\n"
	}

	lines := []string{
		m.styles.Title.Render(m.opts.Title) + "  " + m.stateBadge(),
		m.styles.Muted.Render(m.statsLine()),
	}
	if m.feed.lastClick != "" {
		lines = append(lines, m.styles.Text.Render(m.feed.lastClick))
	}
	if m.feed.alert != "" {
		lines = append(lines, m.styles.Error.Render(m.feed.alert))
	}
	if m.err != nil {
		lines = append(lines, m.styles.Error.Render("Cannot start: "+m.err.Error()))
	}
	if m.stopErr != nil {
		lines = append(lines, m.styles.Warning.Render(m.stopErr.Error()))
	}

	var log []string
	for _, entry := range m.feed.tail.snapshot() {
		kind, line, _ := strings.Cut(entry, "\x00")
		log = append(log, m.styles.ForLevel(kind).Render(line))
	}
	if len(log) == 0 {
		log = []string{m.styles.Muted.Render("waiting for events...")}
	}
	lines = append(lines, "", m.styles.Panel.Render(strings.Join(log, "\n")), "", m.styles.Muted.Render(m.helpLine()))
	return strings.Join(lines, "\n") + "\n"
}

func (m Monitor) stateBadge() string {
	if s := m.feed.Summary(); s != nil {
		return m.styles.Success.Render("[" + strings.ToUpper(string(s.Outcome)) + "]")
	}
	label := "[" + strings.ToUpper(m.status.State.String()) + "]"
	switch m.status.State {
	case engine.StateRunning:
		return m.styles.Success.Render(label)
	case engine.StateStopping:
		return m.styles.Warning.Render(label)
	}
	return m.styles.Muted.Render(label)
}

func (m Monitor) statsLine() string {
	clicks, repeats := m.status.Clicks, m.status.Repeats
	var elapsed time.Duration
	if s := m.feed.Summary(); s != nil {
		clicks, repeats, elapsed = s.Clicks, s.Repeats, s.Elapsed
	} else if !m.status.StartedAt.IsZero() {
		elapsed = time.Since(m.status.StartedAt)
	}
	parts := []string{
		fmt.Sprintf("mode %s", m.opts.Config.Mode),
		fmt.Sprintf("clicks %d", clicks),
	}
	if m.opts.Config.Mode == models.ModeSequence {
		parts = append(parts, fmt.Sprintf("repeats %d", repeats))
	}
	parts = append(parts,
		fmt.Sprintf("errors %d", m.status.ConsecutiveErrors),
		fmt.Sprintf("elapsed %s", elapsed.Round(time.Second)))
	return strings.Join(parts, " | ")
}

func (m Monitor) helpLine() string {
	switch {
	case m.finished():
		return "q quit"
	case m.stopping:
		return "stopping..."
	}
	return "s stop | q stop and quit"
}
