package models

import (
	"fmt"
	"math"
	"strings"
)

// Button identifies a pointer button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonMiddle Button = "middle"
	ButtonRight  Button = "right"
)

const (
	// MaxCoordinate is the largest accepted screen coordinate on either axis.
	MaxCoordinate = 32767

	// MaxSequenceLength caps the number of steps in a sequence.
	MaxSequenceLength = 1000

	// MaxStepDelay is the longest per-step delay accepted without confirmation.
	MaxStepDelay = 3600.0

	// DefaultStepDelay is assigned to recorded steps and to loaded steps with a bad delay.
	DefaultStepDelay = 1.0

	// CorrectedNegativeDelay replaces a negative delay during playback.
	CorrectedNegativeDelay = 0.1
)

// Valid reports whether b is one of the three supported buttons.
func (b Button) Valid() bool {
	switch b {
	case ButtonLeft, ButtonMiddle, ButtonRight:
		return true
	}
	return false
}

// ParseButton parses a button name case-insensitively.
func ParseButton(s string) (Button, error) {
	b := Button(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", &ValidationError{Field: "button", Message: fmt.Sprintf("unknown button %q (expected left|middle|right)", s)}
	}
	return b, nil
}

// ButtonFromCode maps the conventional 1/2/3 button numbering.
func ButtonFromCode(code int) (Button, bool) {
	switch code {
	case 1:
		return ButtonLeft, true
	case 2:
		return ButtonMiddle, true
	case 3:
		return ButtonRight, true
	}
	return "", false
}

// ClickStep is one planned action in a sequence.
type ClickStep struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Button Button  `json:"button"`
	Double bool    `json:"double"`
	Delay  float64 `json:"delay"`
}

// InBounds reports whether a coordinate pair is within [0, MaxCoordinate].
func InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x <= MaxCoordinate && y <= MaxCoordinate
}

// NewClickStep builds a step and validates it strictly.
func NewClickStep(x, y int, button Button, double bool, delay float64) (ClickStep, error) {
	s := ClickStep{X: x, Y: y, Button: button, Double: double, Delay: delay}
	if err := s.Validate(); err != nil {
		return ClickStep{}, err
	}
	return s, nil
}

// Validate rejects any invalid field.
func (s ClickStep) Validate() error {
	validation := &ValidationErrors{}
	if s.X < 0 || s.X > MaxCoordinate {
		validation.AddMessage("x", fmt.Sprintf("must be between 0 and %d (got %d)", MaxCoordinate, s.X))
	}
	if s.Y < 0 || s.Y > MaxCoordinate {
		validation.AddMessage("y", fmt.Sprintf("must be between 0 and %d (got %d)", MaxCoordinate, s.Y))
	}
	if !s.Button.Valid() {
		validation.AddMessage("button", fmt.Sprintf("unknown button %q", s.Button))
	}
	if math.IsNaN(s.Delay) || math.IsInf(s.Delay, 0) || s.Delay < 0 {
		validation.AddMessage("delay", "must be a non-negative number")
	}
	return validation.Err()
}

// Lenient returns a playable copy of s. An invalid button becomes left, a
// negative delay becomes CorrectedNegativeDelay and a delay above
// MaxStepDelay is capped, each reported as a warning.
// Out-of-range coordinates cannot be corrected and return an error.
func (s ClickStep) Lenient() (ClickStep, []string, error) {
	if !InBounds(s.X, s.Y) {
		return s, nil, &ValidationError{
			Field:   "coordinates",
			Message: fmt.Sprintf("invalid coordinates (%d, %d)", s.X, s.Y),
		}
	}

	var warnings []string
	out := s
	if !out.Button.Valid() {
		warnings = append(warnings, fmt.Sprintf("invalid button %q corrected to left", s.Button))
		out.Button = ButtonLeft
	}
	if math.IsNaN(out.Delay) || math.IsInf(out.Delay, 0) || out.Delay < 0 {
		warnings = append(warnings, fmt.Sprintf("negative delay corrected to %gs", CorrectedNegativeDelay))
		out.Delay = CorrectedNegativeDelay
	} else if out.Delay > MaxStepDelay {
		warnings = append(warnings, fmt.Sprintf("delay %gs capped to %gs", s.Delay, MaxStepDelay))
		out.Delay = MaxStepDelay
	}
	return out, warnings, nil
}

// Describe renders the step for listings.
func (s ClickStep) Describe() string {
	kind := "click"
	if s.Double {
		kind = "double click"
	}
	return fmt.Sprintf("%s %s at (%d, %d), then wait %gs", strings.ToUpper(string(s.Button)), kind, s.X, s.Y, s.Delay)
}
