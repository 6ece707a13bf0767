// Package interval computes randomized waits between single clicks.
package interval

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrInvalidRange is returned when a range fails validation.
var ErrInvalidRange = errors.New("invalid interval range")

// MaxSeconds is the longest wait a run accepts for an interval, delay or pause.
const MaxSeconds = 3600.0

// maxDurationSeconds is the largest value Duration can represent.
const maxDurationSeconds = float64(math.MaxInt64) / float64(time.Second)

// Range is a validated [Min, Max] wait window in seconds.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Validate builds a Range, rejecting non-positive bounds and min > max.
func Validate(min, max float64) (Range, error) {
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return Range{}, fmt.Errorf("%w: bounds must be finite numbers", ErrInvalidRange)
	}
	if min <= 0 || max <= 0 {
		return Range{}, fmt.Errorf("%w: intervals must be greater than 0 (min=%g, max=%g)", ErrInvalidRange, min, max)
	}
	if min > max {
		return Range{}, fmt.Errorf("%w: minimum %g is greater than maximum %g", ErrInvalidRange, min, max)
	}
	if max > MaxSeconds {
		return Range{}, fmt.Errorf("%w: intervals must be at most %gs (max=%g)", ErrInvalidRange, MaxSeconds, max)
	}
	return Range{Min: min, Max: max}, nil
}

// Check re-validates a Range built without Validate.
func (r Range) Check() error {
	_, err := Validate(r.Min, r.Max)
	return err
}

// Sample draws a uniform wait in [Min, Max] seconds.
func (r Range) Sample() float64 {
	return r.SampleFrom(rand.Float64)
}

// SampleFrom draws using u, which must return values in [0, 1).
func (r Range) SampleFrom(u func() float64) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	v := r.Min + u()*(r.Max-r.Min)
	if v > r.Max {
		return r.Max
	}
	return v
}

// Duration converts seconds to a time.Duration. Values too large to represent
// saturate at the maximum Duration.
func Duration(seconds float64) time.Duration {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	if seconds >= maxDurationSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}

// String formats the range the way run summaries print it.
func (r Range) String() string {
	return fmt.Sprintf("%g-%gs", r.Min, r.Max)
}
