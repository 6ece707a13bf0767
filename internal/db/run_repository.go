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

// Run repository errors.
var (
	ErrRunNotFound = errors.New("run not found")
	ErrInvalidRun  = errors.New("invalid run")
)

const timeLayout = time.RFC3339Nano

// RunRepository persists journaled runs.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run. ID and StartedAt are filled in when empty.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if run.Mode == "" {
		return fmt.Errorf("%w: mode is required", ErrInvalidRun)
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Outcome == "" {
		run.Outcome = models.OutcomeRunning
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, started_at, ended_at, outcome, clicks)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		string(run.Mode),
		run.StartedAt.UTC().Format(timeLayout),
		formatOptionalTime(run.EndedAt),
		string(run.Outcome),
		run.Clicks,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Finish records the end of a run.
func (r *RunRepository) Finish(ctx context.Context, id string, endedAt time.Time, outcome models.RunOutcome, clicks int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE runs SET ended_at = ?, outcome = ?, clicks = ? WHERE id = ?
	`, endedAt.UTC().Format(timeLayout), string(outcome), clicks, id)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, mode, started_at, ended_at, outcome, clicks FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListRecent returns the most recent runs first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, mode, started_at, ended_at, outcome, clicks
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var mode, startedAt, outcome string
	var endedAt sql.NullString

	if err := row.Scan(&run.ID, &mode, &startedAt, &endedAt, &outcome, &run.Clicks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Mode = models.ExecutionMode(mode)
	run.Outcome = models.RunOutcome(outcome)
	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		run.StartedAt = t
	}
	if endedAt.Valid {
		if t, err := time.Parse(timeLayout, endedAt.String); err == nil {
			run.EndedAt = &t
		}
	}
	return &run, nil
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}
