// Package recorder captures pointer button presses into a click sequence.
package recorder

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opencode-ai/autoclick/internal/models"
	"github.com/opencode-ai/autoclick/internal/sequence"
)

// PointerEvent is one button press delivered by an EventSource.
type PointerEvent struct {
	// ButtonCode is 1 (left), 2 (middle) or 3 (right).
	ButtonCode int

	// LocalX and LocalY are relative to the surface that saw the press.
	LocalX int
	LocalY int

	Time time.Time
}

// EventSource delivers pointer presses. Unsubscribe must be safe to call
// repeatedly and before any Subscribe.
type EventSource interface {
	Subscribe(handler func(PointerEvent)) error
	Unsubscribe() error
}

// PositionFunc returns the absolute pointer position.
type PositionFunc func() (x, y int, err error)

// OriginFunc returns the absolute origin of the surface local coordinates are relative to.
type OriginFunc func() (x, y int, err error)

var errNoPosition = errors.New("no position source available")

// Recorder toggles between idle and armed and appends one step per press while armed.
type Recorder struct {
	mu     sync.Mutex
	armed  bool
	buffer []models.ClickStep

	store    *sequence.Store
	source   EventSource
	position PositionFunc
	origin   OriginFunc
	notify   func(string)
	logger   zerolog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithPosition sets the primary absolute position query.
func WithPosition(fn PositionFunc) Option {
	return func(r *Recorder) { r.position = fn }
}

// WithOrigin sets the fallback origin used to translate local coordinates.
func WithOrigin(fn OriginFunc) Option {
	return func(r *Recorder) { r.origin = fn }
}

// WithNotify sets a callback for user-facing status lines.
func WithNotify(fn func(string)) Option {
	return func(r *Recorder) { r.notify = fn }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// New creates an idle recorder that writes into store.
func New(store *sequence.Store, source EventSource, opts ...Option) *Recorder {
	r := &Recorder{
		store:  store,
		source: source,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Armed reports whether the recorder is capturing.
func (r *Recorder) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// Captured returns the number of steps in the capture buffer.
func (r *Recorder) Captured() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}

// Start arms the recorder. It is a no-op when already armed. Arming clears
// both the capture buffer and the sequence store.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.armed {
		r.mu.Unlock()
		return nil
	}
	r.buffer = nil
	r.armed = true
	r.mu.Unlock()

	r.store.Clear()
	r.unsubscribe()

	if err := r.source.Subscribe(r.handle); err != nil {
		r.mu.Lock()
		r.armed = false
		r.mu.Unlock()
		return fmt.Errorf("subscribe to pointer events: %w", err)
	}

	r.logger.Info().Msg("recording started")
	r.emit("Recording started: press a mouse button to capture a step")
	return nil
}

// Stop disarms the recorder and copies the capture into the store. It always
// attempts to remove the listener and never fails. It returns the number of
// captured steps.
func (r *Recorder) Stop() int {
	r.unsubscribe()

	r.mu.Lock()
	wasArmed := r.armed
	r.armed = false
	captured := make([]models.ClickStep, len(r.buffer))
	copy(captured, r.buffer)
	r.mu.Unlock()

	if !wasArmed {
		return 0
	}

	r.store.Set(captured)
	r.logger.Info().Int("steps", len(captured)).Msg("recording stopped")
	r.emit(fmt.Sprintf("Recording complete: %d clicks", len(captured)))
	return len(captured)
}

// Toggle starts when idle and stops when armed.
func (r *Recorder) Toggle() error {
	if r.Armed() {
		r.Stop()
		return nil
	}
	return r.Start()
}

func (r *Recorder) handle(ev PointerEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Interface("panic", p).Msg("recording event failed")
			r.emit(fmt.Sprintf("Error while recording click: %v", p))
		}
	}()

	if !r.Armed() {
		return
	}

	button, ok := models.ButtonFromCode(ev.ButtonCode)
	if !ok {
		button = models.ButtonLeft
	}

	x, y, err := r.resolve(ev)
	if err != nil {
		r.logger.Warn().Err(err).Msg("dropping pointer event")
		r.emit(fmt.Sprintf("Unable to get mouse position: %v", err))
		return
	}

	r.mu.Lock()
	if !r.armed {
		r.mu.Unlock()
		return
	}
	if len(r.buffer) >= models.MaxSequenceLength {
		r.mu.Unlock()
		r.logger.Warn().Int("limit", models.MaxSequenceLength).Msg("sequence limit reached")
		r.emit(fmt.Sprintf("Maximum sequence length reached (%d clicks)", models.MaxSequenceLength))
		r.Stop()
		return
	}
	r.buffer = append(r.buffer, models.ClickStep{
		X:      x,
		Y:      y,
		Button: button,
		Double: false,
		Delay:  models.DefaultStepDelay,
	})
	count := len(r.buffer)
	r.mu.Unlock()

	r.logger.Debug().Int("x", x).Int("y", y).Str("button", string(button)).Int("count", count).Msg("click recorded")
	r.emit(fmt.Sprintf("Recorded %s click at (%d, %d) [%d]", strings.ToUpper(string(button)), x, y, count))
}

// resolve tries the global cursor first, then local coordinates offset by the origin.
func (r *Recorder) resolve(ev PointerEvent) (int, int, error) {
	primaryErr := errNoPosition
	if r.position != nil {
		x, y, err := r.position()
		if err == nil && models.InBounds(x, y) {
			return x, y, nil
		}
		if err == nil {
			err = fmt.Errorf("position (%d, %d) out of range", x, y)
		}
		primaryErr = err
	}

	if r.origin == nil {
		return 0, 0, primaryErr
	}
	ox, oy, err := r.origin()
	if err != nil {
		return 0, 0, fmt.Errorf("%v; fallback: %w", primaryErr, err)
	}
	x, y := ox+ev.LocalX, oy+ev.LocalY
	if !models.InBounds(x, y) {
		return 0, 0, fmt.Errorf("fallback coordinates (%d, %d) invalid", x, y)
	}
	return x, y, nil
}

func (r *Recorder) unsubscribe() {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn().Interface("panic", p).Msg("unsubscribe panicked")
		}
	}()
	if err := r.source.Unsubscribe(); err != nil {
		r.logger.Debug().Err(err).Msg("unsubscribe failed")
	}
}

func (r *Recorder) emit(msg string) {
	if r.notify != nil {
		r.notify(msg)
	}
}
