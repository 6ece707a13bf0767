package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/opencode-ai/autoclick/internal/models"
)

// EventKind categorizes run status events.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventCountdown EventKind = "countdown"
	EventClick     EventKind = "click"
	EventInfo      EventKind = "info"
	EventWarning   EventKind = "warning"
	EventError     EventKind = "error"
	EventEmergency EventKind = "emergency"
	EventFatal     EventKind = "fatal"
	EventFinished  EventKind = "finished"
)

// ClickInfo describes one successful click.
type ClickInfo struct {
	Button models.Button `json:"button"`
	X      int           `json:"x"`
	Y      int           `json:"y"`
	Double bool          `json:"double"`

	// Wait is the sampled interval before a single-mode click, in seconds.
	Wait float64 `json:"wait,omitempty"`

	// Remaining is the number of clicks left, or -1 when unbounded.
	Remaining int `json:"remaining"`

	// Repeat and Step are 1-based positions in sequence mode.
	Repeat int `json:"repeat,omitempty"`
	Step   int `json:"step,omitempty"`
}

// Summary describes a finished run.
type Summary struct {
	Outcome models.RunOutcome `json:"outcome"`
	Clicks  int               `json:"clicks"`
	Repeats int               `json:"repeats"`
	Elapsed time.Duration     `json:"elapsed"`
}

// Event is one status line emitted by a run.
type Event struct {
	RunID   string               `json:"run_id"`
	Time    time.Time            `json:"time"`
	Kind    EventKind            `json:"kind"`
	Mode    models.ExecutionMode `json:"mode,omitempty"`
	Message string               `json:"message"`
	Click   *ClickInfo           `json:"click,omitempty"`
	Summary *Summary             `json:"summary,omitempty"`
}

// Line renders the event as a timestamped log line.
func (e Event) Line() string {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	prefix := ""
	switch e.Kind {
	case EventWarning:
		prefix = "[WARNING] "
	case EventError:
		prefix = "[ERROR] "
	case EventEmergency:
		prefix = "[EMERGENCY] "
	case EventFatal:
		prefix = "[FATAL] "
	}
	return fmt.Sprintf("[%s] %s%s", ts.Format(time.TimeOnly), prefix, e.Message)
}

func clickMessage(info ClickInfo) string {
	kind := "Click"
	if info.Double {
		kind = "Double click"
	}
	var b strings.Builder
	if info.Repeat > 0 {
		fmt.Fprintf(&b, "Seq %d.%d: ", info.Repeat, info.Step)
	}
	fmt.Fprintf(&b, "%s %s at (%d, %d)", kind, strings.ToUpper(string(info.Button)), info.X, info.Y)
	if info.Repeat == 0 {
		fmt.Fprintf(&b, " - wait: %.1fs", info.Wait)
		if info.Remaining >= 0 {
			fmt.Fprintf(&b, " (remaining: %d)", info.Remaining)
		}
	}
	return b.String()
}
