// Package engine runs single-click and sequence-playback automation on a background worker.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/autoclick/internal/config"
	"github.com/opencode-ai/autoclick/internal/injector"
	"github.com/opencode-ai/autoclick/internal/models"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is active.
	ErrAlreadyRunning = errors.New("a run is already in progress")

	// ErrNotRunning is returned by Stop when the engine is idle.
	ErrNotRunning = errors.New("no run in progress")

	// ErrLicenseBlocked is returned by Start when the usage gate refuses.
	ErrLicenseBlocked = errors.New("free uses exhausted: activate a license to continue")

	// ErrEmptySequence is returned by Start for sequence mode without steps.
	ErrEmptySequence = errors.New("no sequence defined")

	// ErrJoinTimeout is returned by Stop when the worker does not exit in time.
	// The worker is left detached and the engine returns to idle.
	ErrJoinTimeout = errors.New("worker did not stop within the join timeout")
)

// State is the engine lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Gate decides whether a new run may start.
type Gate interface {
	CanUse() bool
	IncrementUsage() error
}

// Unlimited is a Gate that always allows runs.
type Unlimited struct{}

// CanUse always returns true.
func (Unlimited) CanUse() bool { return true }

// IncrementUsage does nothing.
func (Unlimited) IncrementUsage() error { return nil }

// Options tunes run timing and error policy.
type Options struct {
	// PollSlice is the longest uninterrupted sleep; cancellation lands within one slice.
	PollSlice time.Duration

	// JoinTimeout bounds how long Stop waits for the worker.
	JoinTimeout time.Duration

	// MaxConsecutiveErrors ends a run after this many failures in a row.
	MaxConsecutiveErrors int

	// ErrorBackoff is the pause after a failed click.
	ErrorBackoff time.Duration

	// CountdownStatusEvery is how often the initial delay reports time remaining.
	CountdownStatusEvery time.Duration

	// Rand returns values in [0, 1) for interval sampling.
	Rand func() float64

	// Now returns the current time.
	Now func() time.Time
}

// DefaultOptions returns the standard timing policy.
func DefaultOptions() Options {
	return Options{
		PollSlice:            config.MaxPollSlice,
		JoinTimeout:          2 * time.Second,
		MaxConsecutiveErrors: 5,
		ErrorBackoff:         500 * time.Millisecond,
		CountdownStatusEvery: time.Second,
		Rand:                 rand.Float64,
		Now:                  time.Now,
	}
}

// OptionsFromConfig converts the engine config section.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	opts := DefaultOptions()
	opts.PollSlice = cfg.PollSlice
	opts.JoinTimeout = cfg.JoinTimeout
	opts.MaxConsecutiveErrors = cfg.MaxConsecutiveErrors
	opts.ErrorBackoff = cfg.ErrorBackoff
	opts.CountdownStatusEvery = cfg.CountdownStatusEvery
	return opts
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.PollSlice <= 0 || o.PollSlice > config.MaxPollSlice {
		o.PollSlice = d.PollSlice
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = d.JoinTimeout
	}
	if o.MaxConsecutiveErrors <= 0 {
		o.MaxConsecutiveErrors = d.MaxConsecutiveErrors
	}
	if o.ErrorBackoff < 0 {
		o.ErrorBackoff = d.ErrorBackoff
	}
	if o.CountdownStatusEvery <= 0 {
		o.CountdownStatusEvery = d.CountdownStatusEvery
	}
	if o.Rand == nil {
		o.Rand = d.Rand
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// Status is a point-in-time view of the engine.
type Status struct {
	State             State                `json:"state"`
	RunID             string               `json:"run_id,omitempty"`
	Mode              models.ExecutionMode `json:"mode,omitempty"`
	Clicks            int                  `json:"clicks"`
	Repeats           int                  `json:"repeats"`
	ConsecutiveErrors int                  `json:"consecutive_errors"`
	StartedAt         time.Time            `json:"started_at,omitempty"`
}

// run is the state owned by one worker. A detached worker keeps its own
// flag, so a later run never revives it.
type run struct {
	id      string
	cfg     models.RunConfig
	started time.Time

	running     atomic.Bool
	clicks      atomic.Int64
	repeats     atomic.Int64
	consecutive atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *run) stop() {
	r.running.Store(false)
	r.cancel()
}

// Engine is the click execution state machine. It is safe for concurrent use.
type Engine struct {
	injector injector.Injector
	gate     Gate
	sink     Sink
	dispatch Dispatcher
	logger   zerolog.Logger
	opts     Options

	mu    sync.Mutex
	state State
	cur   *run
}

// New creates an idle engine. Nil gate, sink and dispatcher get permissive defaults.
func New(inj injector.Injector, gate Gate, sink Sink, dispatch Dispatcher, logger zerolog.Logger, opts Options) *Engine {
	if gate == nil {
		gate = Unlimited{}
	}
	if sink == nil {
		sink = NoopSink{}
	}
	if dispatch == nil {
		dispatch = &DirectDispatcher{}
	}
	return &Engine{
		injector: inj,
		gate:     gate,
		sink:     sink,
		dispatch: dispatch,
		logger:   logger,
		opts:     opts.normalized(),
	}
}

// Start validates cfg and launches a worker. A rejected start leaves the engine idle.
// Cancelling ctx stops the run the same way Stop does, without waiting.
func (e *Engine) Start(ctx context.Context, cfg models.RunConfig) (string, error) {
	if cfg.Mode == models.ModeSequence && len(cfg.Steps) == 0 {
		return "", &models.ValidationError{Field: "sequence", Message: ErrEmptySequence.Error(), Err: ErrEmptySequence}
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	if !e.gate.CanUse() {
		e.mu.Unlock()
		return "", ErrLicenseBlocked
	}

	cfg.Steps = append([]models.ClickStep(nil), cfg.Steps...)
	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{
		id:      uuid.New().String(),
		cfg:     cfg,
		started: e.opts.Now(),
		ctx:     runCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	r.running.Store(true)
	e.cur = r
	e.state = StateStarting
	e.mu.Unlock()

	if err := e.gate.IncrementUsage(); err != nil {
		e.logger.Warn().Err(err).Msg("failed to record usage")
	}

	e.logger.Info().
		Str("run_id", r.id).
		Str("mode", string(cfg.Mode)).
		Msg("run started")
	e.publish(Event{
		RunID:   r.id,
		Kind:    EventStarted,
		Mode:    cfg.Mode,
		Message: startMessage(cfg),
	})

	go e.work(r)
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				r.stop()
			case <-r.done:
			}
		}()
	}
	return r.id, nil
}

// Stop signals the current run to cancel and waits up to JoinTimeout for the
// worker to exit. On timeout the worker is abandoned, the engine returns to
// idle, and ErrJoinTimeout is returned.
func (e *Engine) Stop() error {
	e.mu.Lock()
	r := e.cur
	if r == nil || e.state == StateIdle {
		e.mu.Unlock()
		return ErrNotRunning
	}
	e.state = StateStopping
	e.mu.Unlock()

	r.stop()

	timer := time.NewTimer(e.opts.JoinTimeout)
	defer timer.Stop()
	select {
	case <-r.done:
		return nil
	case <-timer.C:
	}

	e.logger.Warn().
		Str("run_id", r.id).
		Dur("timeout", e.opts.JoinTimeout).
		Msg("worker did not stop in time, detaching")
	e.mu.Lock()
	if e.cur == r {
		e.cur = nil
		e.state = StateIdle
	}
	e.mu.Unlock()
	e.publish(Event{
		RunID:   r.id,
		Kind:    EventWarning,
		Message: fmt.Sprintf("Worker did not stop within %s; detached", e.opts.JoinTimeout),
	})
	return ErrJoinTimeout
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns a snapshot of the current run, if any.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{State: e.state}
	if r := e.cur; r != nil {
		st.RunID = r.id
		st.Mode = r.cfg.Mode
		st.Clicks = int(r.clicks.Load())
		st.Repeats = int(r.repeats.Load())
		st.ConsecutiveErrors = int(r.consecutive.Load())
		st.StartedAt = r.started
	}
	return st
}

// Done returns a channel closed when the current run's worker exits. It returns
// a closed channel when the engine is idle.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return e.cur.done
}

// Wait blocks until the current run ends or ctx is cancelled.
func (e *Engine) Wait(ctx context.Context) error {
	select {
	case <-e.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) setRunning(r *run) {
	e.mu.Lock()
	if e.cur == r && e.state == StateStarting {
		e.state = StateRunning
	}
	e.mu.Unlock()
}

func (e *Engine) finish(r *run, outcome models.RunOutcome) {
	summary := &Summary{
		Outcome: outcome,
		Clicks:  int(r.clicks.Load()),
		Repeats: int(r.repeats.Load()),
		Elapsed: e.opts.Now().Sub(r.started),
	}
	r.running.Store(false)
	r.cancel()

	e.logger.Info().
		Str("run_id", r.id).
		Str("outcome", string(outcome)).
		Int("clicks", summary.Clicks).
		Dur("elapsed", summary.Elapsed).
		Msg("run finished")
	e.publish(Event{
		RunID:   r.id,
		Kind:    EventFinished,
		Mode:    r.cfg.Mode,
		Message: finishMessage(summary),
		Summary: summary,
	})

	e.mu.Lock()
	if e.cur == r {
		e.cur = nil
		e.state = StateIdle
	}
	e.mu.Unlock()
	close(r.done)
}

// publish logs the event and hands it to the sink on the dispatcher.
func (e *Engine) publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = e.opts.Now()
	}

	var logEvent *zerolog.Event
	switch ev.Kind {
	case EventClick, EventCountdown:
		logEvent = e.logger.Debug()
	case EventWarning, EventError:
		logEvent = e.logger.Warn()
	case EventEmergency, EventFatal:
		logEvent = e.logger.Error()
	default:
		logEvent = e.logger.Info()
	}
	logEvent.Str("run_id", ev.RunID).Str("kind", string(ev.Kind)).Msg(ev.Message)

	e.dispatch.Post(func() {
		if err := e.sink.Emit(context.Background(), ev); err != nil {
			e.logger.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("event sink failed")
		}
	})
}

func startMessage(cfg models.RunConfig) string {
	if cfg.Mode == models.ModeSequence {
		repeats := fmt.Sprintf("%d", cfg.Repeats)
		if cfg.InfiniteRepeats {
			repeats = "∞"
		}
		return fmt.Sprintf("Sequence playback started: %d steps, repeats %s, pause %s", len(cfg.Steps), repeats, cfg.Pause)
	}
	limit := fmt.Sprintf("%d", cfg.MaxClicks)
	if cfg.InfiniteClicks {
		limit = "∞"
	}
	return fmt.Sprintf("Automatic clicks started: interval %s, type %s, max %s, double %t",
		cfg.Interval, cfg.Button, limit, cfg.Double)
}

func finishMessage(s *Summary) string {
	return fmt.Sprintf("Run %s: %d clicks, %d repeats in %s", s.Outcome, s.Clicks, s.Repeats, s.Elapsed.Round(time.Millisecond))
}
