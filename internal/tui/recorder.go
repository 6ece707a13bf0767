package tui

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opencode-ai/autoclick/internal/recorder"
	"github.com/opencode-ai/autoclick/internal/sequence"
	"github.com/opencode-ai/autoclick/internal/tui/styles"
)

// MouseSource is a recorder.EventSource fed by terminal mouse presses.
// Local coordinates are terminal cells.
type MouseSource struct {
	mu      sync.Mutex
	handler func(recorder.PointerEvent)
	now     func() time.Time
}

// NewMouseSource creates an unsubscribed source.
func NewMouseSource() *MouseSource {
	return &MouseSource{now: time.Now}
}

// Subscribe installs the press handler, replacing any previous one.
func (s *MouseSource) Subscribe(handler func(recorder.PointerEvent)) error {
	if handler == nil {
		return errors.New("handler is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
	return nil
}

// Unsubscribe removes the handler. It is safe to call at any time.
func (s *MouseSource) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = nil
	return nil
}

// Active reports whether a handler is installed.
func (s *MouseSource) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler != nil
}

// Deliver forwards a button press to the handler. Motion, release and wheel
// events are ignored. It reports whether the message was delivered.
func (s *MouseSource) Deliver(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}
	var code int
	switch msg.Button {
	case tea.MouseButtonLeft:
		code = 1
	case tea.MouseButtonMiddle:
		code = 2
	case tea.MouseButtonRight:
		code = 3
	default:
		return false
	}

	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler == nil {
		return false
	}
	handler(recorder.PointerEvent{ButtonCode: code, LocalX: msg.X, LocalY: msg.Y, Time: s.now()})
	return true
}

// RecorderOptions configures a RecorderView.
type RecorderOptions struct {
	Title  string
	Styles styles.Styles

	// Recorder options such as WithPosition or WithOrigin.
	Recorder []recorder.Option
}

// RecorderView is the bubbletea model for capturing a sequence.
type RecorderView struct {
	rec    *recorder.Recorder
	source *MouseSource
	store  *sequence.Store
	lines  *lineRing
	title  string
	styles styles.Styles

	saved bool
	err   error
}

// NewRecorderView wires a recorder to terminal mouse input. Captured steps land
// in store when recording stops.
func NewRecorderView(store *sequence.Store, opts RecorderOptions) *RecorderView {
	if opts.Title == "" {
		opts.Title = "autoclick recorder"
	}
	if opts.Styles.Theme.Name == "" {
		opts.Styles = styles.DefaultStyles()
	}

	v := &RecorderView{
		source: NewMouseSource(),
		store:  store,
		lines:  newLineRing(defaultTailSize),
		title:  opts.Title,
		styles: opts.Styles,
	}
	recOpts := append([]recorder.Option{}, opts.Recorder...)
	recOpts = append(recOpts, recorder.WithNotify(func(line string) {
		v.lines.add(fmt.Sprintf("[%s] %s", time.Now().Format(time.TimeOnly), line))
	}))
	v.rec = recorder.New(store, v.source, recOpts...)
	return v
}

// Saved reports whether the user finished with q or enter.
func (v *RecorderView) Saved() bool {
	return v.saved
}

// Recorder returns the underlying recorder.
func (v *RecorderView) Recorder() *recorder.Recorder {
	return v.rec
}

func (v *RecorderView) Init() tea.Cmd {
	return nil
}

func (v *RecorderView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.MouseMsg:
		v.source.Deliver(msg)
	case tea.KeyMsg:
		switch msg.String() {
		case "s", " ":
			if err := v.rec.Toggle(); err != nil {
				v.err = err
			}
		case "q", "enter":
			v.rec.Stop()
			v.saved = true
			return v, tea.Quit
		case "esc", "ctrl+c":
			v.rec.Stop()
			return v, tea.Quit
		}
	}
	return v, nil
}

func (v *RecorderView) View() string {
	badge := v.styles.Muted.Render("[IDLE]")
	count := v.store.Len()
	if v.rec.Armed() {
		badge = v.styles.Armed.Render("[RECORDING]")
		count = v.rec.Captured()
	}

	lines := []string{
		v.styles.Title.Render(v.title) + "  " + badge,
		v.styles.Muted.Render(fmt.Sprintf("steps %d", count)),
	}
	if v.err != nil {
		lines = append(lines, v.styles.Error.Render(v.err.Error()))
	}

	log := v.lines.snapshot()
	if len(log) == 0 {
		log = []string{"press s to start recording, then click to capture steps"}
	}
	lines = append(lines,
		"",
		v.styles.Panel.Render(v.styles.Text.Render(strings.Join(log, "\n"))),
		"",
		v.styles.Muted.Render("s start/stop recording | q save and quit | esc discard"),
	)
	return strings.Join(lines, "\n") + "\n"
}
