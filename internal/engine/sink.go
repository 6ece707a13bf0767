package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Sink receives run events.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// NoopSink drops all events.
type NoopSink struct{}

// Emit ignores events.
func (NoopSink) Emit(ctx context.Context, event Event) error {
	return nil
}

// MultiSink fans events out to several sinks.
type MultiSink []Sink

// Emit delivers to every sink and joins their errors.
func (m MultiSink) Emit(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LineSink writes each event's Line to w.
type LineSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineSink creates a plain-text sink.
func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w}
}

// Emit writes one line.
func (s *LineSink) Emit(ctx context.Context, event Event) error {
	if event.Kind == EventCountdown {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, event.Line())
	return err
}

// JSONSink streams events as JSON lines.
type JSONSink struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONSink creates a JSON-lines sink.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{encoder: json.NewEncoder(w)}
}

// Emit encodes one event.
func (s *JSONSink) Emit(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoder.Encode(event)
}
