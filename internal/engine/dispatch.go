package engine

import "sync"

// Dispatcher runs functions on whichever goroutine owns the presentation state.
// The engine delivers every event through it and never calls a Sink directly
// from the worker.
type Dispatcher interface {
	Post(fn func())
}

// DirectDispatcher runs each function inline, one at a time.
type DirectDispatcher struct {
	mu sync.Mutex
}

// Post runs fn while holding the dispatcher lock.
func (d *DirectDispatcher) Post(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

// Post calls f.
func (f DispatcherFunc) Post(fn func()) {
	f(fn)
}
