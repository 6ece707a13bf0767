package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opencode-ai/autoclick/internal/models"
)

// ErrInvalidEvent is returned when an event lacks required fields.
var ErrInvalidEvent = errors.New("invalid event")

// EventRepository handles run event persistence.
type EventRepository struct {
	db *DB
}

type eventExecer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends an event to a run's log.
func (r *EventRepository) Create(ctx context.Context, event *models.RunEvent) error {
	return r.createWithExecutor(ctx, r.db, event)
}

// CreateWithTx appends an event using an existing transaction.
func (r *EventRepository) CreateWithTx(ctx context.Context, tx *sql.Tx, event *models.RunEvent) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return r.createWithExecutor(ctx, tx, event)
}

func (r *EventRepository) createWithExecutor(ctx context.Context, execer eventExecer, event *models.RunEvent) error {
	if event.RunID == "" || event.Kind == "" {
		return ErrInvalidEvent
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	} else {
		event.Timestamp = event.Timestamp.UTC()
	}

	_, err := execer.ExecContext(ctx, `
		INSERT INTO events (id, run_id, timestamp, kind, message)
		VALUES (?, ?, ?, ?, ?)
	`,
		event.ID,
		event.RunID,
		event.Timestamp.Format(timeLayout),
		event.Kind,
		event.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// ListByRun returns a run's events in emission order.
func (r *EventRepository) ListByRun(ctx context.Context, runID string, limit int) ([]*models.RunEvent, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, timestamp, kind, message
		FROM events
		WHERE run_id = ?
		ORDER BY timestamp, rowid
		LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.RunEvent
	for rows.Next() {
		var event models.RunEvent
		var timestamp string
		if err := rows.Scan(&event.ID, &event.RunID, &timestamp, &event.Kind, &event.Message); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if t, err := time.Parse(timeLayout, timestamp); err == nil {
			event.Timestamp = t
		} else {
			r.db.logger.Warn().Err(err).Str("event_id", event.ID).Msg("failed to parse event timestamp")
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// CountByRun returns how many events a run has.
func (r *EventRepository) CountByRun(ctx context.Context, runID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}
