package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/opencode-ai/autoclick/internal/injector"
	"github.com/opencode-ai/autoclick/internal/interval"
	"github.com/opencode-ai/autoclick/internal/models"
)

// work is the worker goroutine body for one run.
func (e *Engine) work(r *run) {
	outcome := models.OutcomeFailed
	defer func() {
		if p := recover(); p != nil {
			e.emit(r, EventFatal, fmt.Sprintf("Critical error in click loop: %v", p))
			outcome = models.OutcomeFailed
		}
		e.finish(r, outcome)
	}()

	if !e.countdown(r) {
		outcome = models.OutcomeCancelled
		return
	}
	e.setRunning(r)

	switch r.cfg.Mode {
	case models.ModeSequence:
		outcome = e.runSequence(r)
	default:
		outcome = e.runSingle(r)
	}
}

// countdown honors the initial delay. It returns false when cancelled.
func (e *Engine) countdown(r *run) bool {
	total := r.cfg.InitialDelay
	if total <= 0 {
		return r.running.Load()
	}
	e.emit(r, EventInfo, fmt.Sprintf("Initial delay of %gs...", total.Seconds()))

	start := e.opts.Now()
	var lastStatus time.Time
	for {
		if !r.running.Load() {
			return false
		}
		now := e.opts.Now()
		remaining := total - now.Sub(start)
		if remaining <= 0 {
			return true
		}
		if lastStatus.IsZero() || now.Sub(lastStatus) >= e.opts.CountdownStatusEvery {
			e.emit(r, EventCountdown, fmt.Sprintf("Starting in %.1fs...", remaining.Seconds()))
			lastStatus = now
		}
		time.Sleep(min(remaining, e.opts.PollSlice))
	}
}

// sleep waits for d in slices no longer than PollSlice. It returns false as
// soon as the run flag is cleared.
func (e *Engine) sleep(r *run, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if !r.running.Load() {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		time.Sleep(min(remaining, e.opts.PollSlice))
	}
}

// fail records a failed attempt and reports whether the run must end.
func (e *Engine) fail(r *run, msg string) bool {
	n := int(r.consecutive.Add(1))
	e.emit(r, EventError, msg)
	if n >= e.opts.MaxConsecutiveErrors {
		e.emit(r, EventFatal, fmt.Sprintf("Too many consecutive errors (%d), stopping", n))
		return true
	}
	return false
}

func (e *Engine) succeed(r *run) int {
	r.consecutive.Store(0)
	return int(r.clicks.Add(1))
}

func (e *Engine) click(r *run, x, y int, button models.Button, double bool) error {
	if double {
		return e.injector.DoubleClick(r.ctx, x, y, button)
	}
	return e.injector.Click(r.ctx, x, y, button)
}

func (e *Engine) position(r *run) (int, int, error) {
	if r.cfg.UseCurrentPosition {
		x, y, err := e.injector.CursorPosition(r.ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("cursor position: %w", err)
		}
		if x < 0 || y < 0 {
			return 0, 0, fmt.Errorf("negative coordinates (%d, %d)", x, y)
		}
		return x, y, nil
	}
	if !models.InBounds(r.cfg.FixedX, r.cfg.FixedY) {
		return 0, 0, fmt.Errorf("invalid fixed coordinates (%d, %d)", r.cfg.FixedX, r.cfg.FixedY)
	}
	return r.cfg.FixedX, r.cfg.FixedY, nil
}

func (e *Engine) runSingle(r *run) models.RunOutcome {
	cfg := r.cfg
	for {
		if !r.running.Load() {
			return models.OutcomeCancelled
		}
		if !cfg.InfiniteClicks && int(r.clicks.Load()) >= cfg.MaxClicks {
			e.emit(r, EventInfo, fmt.Sprintf("Reached maximum number of clicks (%d)", cfg.MaxClicks))
			return models.OutcomeCompleted
		}

		wait := cfg.Interval.SampleFrom(e.opts.Rand)
		if !e.sleep(r, interval.Duration(wait)) {
			return models.OutcomeCancelled
		}

		x, y, err := e.position(r)
		if err != nil {
			if e.fail(r, fmt.Sprintf("Coordinate error: %v", err)) {
				return models.OutcomeTooManyErrors
			}
			continue
		}

		err = e.click(r, x, y, cfg.Button, cfg.Double)
		if errors.Is(err, injector.ErrFailSafe) {
			e.emit(r, EventEmergency, "Clicks stopped - mouse in screen corner")
			return models.OutcomeEmergency
		}
		if err != nil {
			if !r.running.Load() {
				return models.OutcomeCancelled
			}
			if e.fail(r, fmt.Sprintf("Error during click: %v", err)) {
				return models.OutcomeTooManyErrors
			}
			if !e.sleep(r, e.opts.ErrorBackoff) {
				return models.OutcomeCancelled
			}
			continue
		}

		n := e.succeed(r)
		info := ClickInfo{Button: cfg.Button, X: x, Y: y, Double: cfg.Double, Wait: wait, Remaining: -1}
		if !cfg.InfiniteClicks {
			info.Remaining = cfg.MaxClicks - n
		}
		e.emitClick(r, info)
	}
}

func (e *Engine) runSequence(r *run) models.RunOutcome {
	cfg := r.cfg
	steps := cfg.Steps
	e.emit(r, EventInfo, fmt.Sprintf("Starting sequence with %d clicks", len(steps)))

	for rep := 1; cfg.InfiniteRepeats || rep <= cfg.Repeats; rep++ {
		if !r.running.Load() {
			return models.OutcomeCancelled
		}
		e.emit(r, EventInfo, fmt.Sprintf("Running sequence #%d", rep))

		for i, raw := range steps {
			if !r.running.Load() {
				return models.OutcomeCancelled
			}

			step, warnings, err := raw.Lenient()
			for _, w := range warnings {
				e.emit(r, EventWarning, fmt.Sprintf("Step %d: %s", i+1, w))
			}
			if err != nil {
				if e.fail(r, fmt.Sprintf("Step %d: %v", i+1, err)) {
					return models.OutcomeTooManyErrors
				}
				continue
			}

			err = e.click(r, step.X, step.Y, step.Button, step.Double)
			if errors.Is(err, injector.ErrFailSafe) {
				e.emit(r, EventEmergency, "Clicks stopped - mouse in screen corner")
				return models.OutcomeEmergency
			}
			if err != nil {
				if !r.running.Load() {
					return models.OutcomeCancelled
				}
				if e.fail(r, fmt.Sprintf("Error during click %d of the sequence: %v", i+1, err)) {
					return models.OutcomeTooManyErrors
				}
				if !e.sleep(r, e.opts.ErrorBackoff) {
					return models.OutcomeCancelled
				}
				continue
			}

			e.succeed(r)
			e.emitClick(r, ClickInfo{
				Button:    step.Button,
				X:         step.X,
				Y:         step.Y,
				Double:    step.Double,
				Remaining: -1,
				Repeat:    rep,
				Step:      i + 1,
			})

			if i < len(steps)-1 {
				if !e.sleep(r, interval.Duration(step.Delay)) {
					return models.OutcomeCancelled
				}
			}
		}

		r.repeats.Store(int64(rep))
		if !cfg.InfiniteRepeats && rep >= cfg.Repeats {
			break
		}
		e.emit(r, EventInfo, fmt.Sprintf("Pausing %gs before the next sequence", cfg.Pause.Seconds()))
		if !e.sleep(r, cfg.Pause) {
			return models.OutcomeCancelled
		}
	}

	e.emit(r, EventInfo, fmt.Sprintf("Sequence completed. Repeats: %d, total clicks: %d", r.repeats.Load(), r.clicks.Load()))
	return models.OutcomeCompleted
}

func (e *Engine) emit(r *run, kind EventKind, msg string) {
	e.publish(Event{RunID: r.id, Kind: kind, Mode: r.cfg.Mode, Message: msg})
}

func (e *Engine) emitClick(r *run, info ClickInfo) {
	e.publish(Event{
		RunID:   r.id,
		Kind:    EventClick,
		Mode:    r.cfg.Mode,
		Message: clickMessage(info),
		Click:   &info,
	})
}
