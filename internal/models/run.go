package models

import "time"

// RunOutcome records how a run ended.
type RunOutcome string

const (
	OutcomeRunning       RunOutcome = "running"
	OutcomeCompleted     RunOutcome = "completed"
	OutcomeCancelled     RunOutcome = "cancelled"
	OutcomeEmergency     RunOutcome = "emergency"
	OutcomeTooManyErrors RunOutcome = "too_many_errors"
	OutcomeFailed        RunOutcome = "failed"
)

// Run is one journaled execution.
type Run struct {
	// ID is the unique identifier for the run.
	ID string `json:"id"`

	// Mode is the execution mode the run used.
	Mode ExecutionMode `json:"mode"`

	// StartedAt is when the run was accepted.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the worker exited. Nil while running.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	// Outcome is how the run ended.
	Outcome RunOutcome `json:"outcome"`

	// Clicks is the number of successful clicks.
	Clicks int `json:"clicks"`
}

// Duration returns the elapsed run time, measured to now while still running.
func (r *Run) Duration() time.Duration {
	if r.EndedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// RunEvent is one status line emitted during a run.
type RunEvent struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
}
