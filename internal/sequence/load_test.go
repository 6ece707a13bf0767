package sequence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/autoclick/internal/models"
)

func TestLoadTruncatesOverflow(t *testing.T) {
	raw := make([]any, 1200)
	for i := range raw {
		raw[i] = map[string]any{"x": float64(i), "y": float64(i), "button": "left", "double": false, "delay": 0.5}
	}

	steps, report := Load(raw)
	require.Len(t, steps, 1000)
	require.Equal(t, 200, report.Truncated)
	require.Equal(t, 1000, report.Loaded)
	require.Zero(t, report.Skipped)
	require.Equal(t, 999, steps[999].X)
}

func TestLoadSkipsBadElements(t *testing.T) {
	var raw []any
	require.NoError(t, json.Unmarshal([]byte(`[
		{"x": 10, "y": 20, "button": "right", "double": true, "delay": 2.5},
		{"x": 10, "button": "left"},
		"not an object",
		{"x": "abc", "y": 1, "button": "left"},
		{"x": 40000, "y": 1, "button": "left"},
		{"x": 1, "y": 1, "button": "up"},
		{"x": "7", "y": "8", "button": "middle"},
		{"x": 3, "y": 4, "button": "left", "delay": -2}
	]`), &raw))

	steps, report := Load(raw)
	require.Equal(t, []models.ClickStep{
		{X: 10, Y: 20, Button: models.ButtonRight, Double: true, Delay: 2.5},
		{X: 7, Y: 8, Button: models.ButtonMiddle, Delay: 1},
		{X: 3, Y: 4, Button: models.ButtonLeft, Delay: 1},
	}, steps)
	require.Equal(t, 5, report.Skipped)
	require.Equal(t, 3, report.Loaded)
	require.Zero(t, report.Truncated)
	require.Len(t, report.Warnings, 6)
}

func TestStoreLoadReplacesContents(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(step(9, 9)))

	report := s.Load([]any{map[string]any{"x": 1.0, "y": 2.0, "button": "left"}})
	require.Equal(t, 1, report.Loaded)
	require.Equal(t, []models.ClickStep{{X: 1, Y: 2, Button: models.ButtonLeft, Delay: 1}}, s.Steps())
}
