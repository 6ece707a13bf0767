// Package sequence holds the editable, ordered list of click steps.
package sequence

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opencode-ai/autoclick/internal/models"
)

var (
	// ErrIndexOutOfRange is returned by Replace, Remove and At for a bad index.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrSequenceFull is returned when an append would exceed MaxSequenceLength.
	ErrSequenceFull = errors.New("sequence is full")
)

// Store is an ordered collection of steps, safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	steps []models.ClickStep
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append validates step strictly and adds it at the end.
func (s *Store) Append(step models.ClickStep) error {
	if err := step.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) >= models.MaxSequenceLength {
		return fmt.Errorf("%w: limit is %d steps", ErrSequenceFull, models.MaxSequenceLength)
	}
	s.steps = append(s.steps, step)
	return nil
}

// Replace swaps the step at index.
func (s *Store) Replace(index int, step models.ClickStep) error {
	if err := step.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.steps[index] = step
	return nil
}

// Remove deletes the step at index, shifting later steps down.
func (s *Store) Remove(index int) (models.ClickStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return models.ClickStep{}, err
	}
	removed := s.steps[index]
	s.steps = append(s.steps[:index], s.steps[index+1:]...)
	return removed, nil
}

// At returns the step at index.
func (s *Store) At(index int) (models.ClickStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkIndex(index); err != nil {
		return models.ClickStep{}, err
	}
	return s.steps[index], nil
}

// Len returns the number of steps.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.steps)
}

// Steps returns a copy of the current steps.
func (s *Store) Steps() []models.ClickStep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ClickStep, len(s.steps))
	copy(out, s.steps)
	return out
}

// Set replaces the whole sequence, truncating to MaxSequenceLength.
// It returns the number of steps dropped.
func (s *Store) Set(steps []models.ClickStep) int {
	dropped := 0
	if len(steps) > models.MaxSequenceLength {
		dropped = len(steps) - models.MaxSequenceLength
		steps = steps[:models.MaxSequenceLength]
	}
	cp := make([]models.ClickStep, len(steps))
	copy(cp, steps)

	s.mu.Lock()
	s.steps = cp
	s.mu.Unlock()
	return dropped
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.steps = nil
	s.mu.Unlock()
}

// Load replaces the contents with the valid elements of raw.
func (s *Store) Load(raw []any) LoadReport {
	steps, report := Load(raw)
	s.Set(steps)
	return report
}

func (s *Store) checkIndex(index int) error {
	if index < 0 || index >= len(s.steps) {
		return fmt.Errorf("%w: %d (sequence has %d steps)", ErrIndexOutOfRange, index, len(s.steps))
	}
	return nil
}
