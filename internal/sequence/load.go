package sequence

import (
	"fmt"
	"math"

	"github.com/spf13/cast"

	"github.com/opencode-ai/autoclick/internal/models"
)

// LoadReport summarizes a bulk load.
type LoadReport struct {
	// Loaded is the number of accepted steps.
	Loaded int `json:"loaded"`

	// Skipped counts elements dropped for missing or invalid fields.
	Skipped int `json:"skipped"`

	// Truncated counts elements beyond MaxSequenceLength.
	Truncated int `json:"truncated"`

	// Warnings holds one line per skipped element or correction.
	Warnings []string `json:"warnings,omitempty"`
}

// Load converts decoded document elements into steps. The list is truncated to
// MaxSequenceLength first. Elements that are not mappings, lack x, y or button,
// or carry values that cannot be coerced are skipped rather than failing the load.
func Load(raw []any) ([]models.ClickStep, LoadReport) {
	var report LoadReport
	if len(raw) > models.MaxSequenceLength {
		report.Truncated = len(raw) - models.MaxSequenceLength
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("sequence truncated to %d steps (%d dropped)", models.MaxSequenceLength, report.Truncated))
		raw = raw[:models.MaxSequenceLength]
	}

	steps := make([]models.ClickStep, 0, len(raw))
	for i, elem := range raw {
		step, warn, err := parseElement(elem)
		if err != nil {
			report.Skipped++
			report.Warnings = append(report.Warnings, fmt.Sprintf("step %d skipped: %v", i+1, err))
			continue
		}
		if warn != "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("step %d: %s", i+1, warn))
		}
		steps = append(steps, step)
	}
	report.Loaded = len(steps)
	return steps, report
}

func parseElement(elem any) (models.ClickStep, string, error) {
	m, ok := elem.(map[string]any)
	if !ok {
		return models.ClickStep{}, "", fmt.Errorf("not an object")
	}
	for _, field := range []string{"x", "y", "button"} {
		if _, ok := m[field]; !ok {
			return models.ClickStep{}, "", fmt.Errorf("missing %q", field)
		}
	}

	x, err := toCoordinate(m["x"])
	if err != nil {
		return models.ClickStep{}, "", fmt.Errorf("x: %w", err)
	}
	y, err := toCoordinate(m["y"])
	if err != nil {
		return models.ClickStep{}, "", fmt.Errorf("y: %w", err)
	}
	if !models.InBounds(x, y) {
		return models.ClickStep{}, "", fmt.Errorf("coordinates (%d, %d) out of range", x, y)
	}

	name, ok := m["button"].(string)
	button := models.Button(name)
	if !ok || !button.Valid() {
		return models.ClickStep{}, "", fmt.Errorf("invalid button %v", m["button"])
	}

	var warn string
	delay := models.DefaultStepDelay
	if rawDelay, ok := m["delay"]; ok {
		d, err := cast.ToFloat64E(rawDelay)
		if err != nil || math.IsNaN(d) || d < 0 || d > models.MaxStepDelay {
			warn = fmt.Sprintf("delay %v reset to %gs", rawDelay, models.DefaultStepDelay)
		} else {
			delay = d
		}
	}

	return models.ClickStep{
		X:      x,
		Y:      y,
		Button: button,
		Double: cast.ToBool(m["double"]),
		Delay:  delay,
	}, warn, nil
}

func toCoordinate(v any) (int, error) {
	if _, isBool := v.(bool); isBool || v == nil {
		return 0, fmt.Errorf("not a number")
	}
	return cast.ToIntE(v)
}
