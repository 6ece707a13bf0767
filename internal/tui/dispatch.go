package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opencode-ai/autoclick/internal/engine"
)

// postedMsg carries a dispatched function onto the program goroutine.
type postedMsg struct {
	run func()
}

// sender is the part of *tea.Program the dispatcher needs.
type sender interface {
	Send(msg tea.Msg)
}

// ProgramDispatcher is an engine.Dispatcher that runs each function inside the
// bubbletea event loop. Post blocks until the function has run. Before Attach
// and after Detach it runs functions inline instead.
type ProgramDispatcher struct {
	mu      sync.Mutex
	program sender
	exited  chan struct{}
	inline  engine.DirectDispatcher
}

// NewProgramDispatcher creates a dispatcher with no program attached.
func NewProgramDispatcher() *ProgramDispatcher {
	return &ProgramDispatcher{}
}

// Attach routes subsequent posts to p.
func (d *ProgramDispatcher) Attach(p sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.program = p
	d.exited = make(chan struct{})
}

// Detach reverts to inline dispatch. Call it once the program has returned so
// that functions still in flight are not lost.
func (d *ProgramDispatcher) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.program == nil {
		return
	}
	d.program = nil
	close(d.exited)
}

// Post runs fn on the program goroutine, or inline when no program is attached.
func (d *ProgramDispatcher) Post(fn func()) {
	var once sync.Once
	run := func() { once.Do(fn) }

	d.mu.Lock()
	p, exited := d.program, d.exited
	d.mu.Unlock()

	if p == nil {
		d.inline.Post(run)
		return
	}

	delivered := make(chan struct{})
	go p.Send(postedMsg{run: func() {
		run()
		close(delivered)
	}})

	select {
	case <-delivered:
	case <-exited:
		// The program may have quit with the message unread.
		d.inline.Post(run)
	}
}
