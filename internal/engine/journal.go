package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/opencode-ai/autoclick/internal/db"
	"github.com/opencode-ai/autoclick/internal/models"
)

// DatabaseSink journals runs and their events to SQLite.
type DatabaseSink struct {
	mu     sync.Mutex
	runs   *db.RunRepository
	events *db.EventRepository
}

// NewDatabaseSink creates a database-backed sink.
func NewDatabaseSink(database *db.DB) *DatabaseSink {
	s := &DatabaseSink{}
	if database != nil {
		s.runs = db.NewRunRepository(database)
		s.events = db.NewEventRepository(database)
	}
	return s
}

// Emit opens a run row on EventStarted, closes it on EventFinished, and stores
// every event except countdown ticks.
func (s *DatabaseSink) Emit(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runs == nil || s.events == nil {
		return errors.New("journal database is required")
	}

	if event.Kind == EventStarted {
		run := &models.Run{
			ID:        event.RunID,
			Mode:      event.Mode,
			StartedAt: event.Time,
			Outcome:   models.OutcomeRunning,
		}
		if err := s.runs.Create(ctx, run); err != nil {
			return err
		}
	}
	if event.Kind == EventCountdown {
		return nil
	}

	if err := s.events.Create(ctx, &models.RunEvent{
		RunID:     event.RunID,
		Timestamp: event.Time,
		Kind:      string(event.Kind),
		Message:   event.Message,
	}); err != nil {
		return err
	}

	if event.Kind == EventFinished && event.Summary != nil {
		return s.runs.Finish(ctx, event.RunID, event.Time, event.Summary.Outcome, event.Summary.Clicks)
	}
	return nil
}
