package models

import (
	"fmt"
	"math"
	"time"

	"github.com/opencode-ai/autoclick/internal/interval"
)

// ExecutionMode selects what a run does.
type ExecutionMode string

const (
	ModeSingle   ExecutionMode = "single"
	ModeSequence ExecutionMode = "sequence"
)

// Valid reports whether m is a known mode.
func (m ExecutionMode) Valid() bool {
	return m == ModeSingle || m == ModeSequence
}

// BasicSettings holds the single-click timing options.
type BasicSettings struct {
	MinInterval    float64 `json:"min_interval"`
	MaxInterval    float64 `json:"max_interval"`
	InfiniteClicks bool    `json:"infinite_clicks"`
	MaxClicks      int     `json:"max_clicks"`
}

// AdvancedSettings holds click type and position options.
type AdvancedSettings struct {
	ClickType          Button  `json:"click_type"`
	DoubleClick        bool    `json:"double_click"`
	UseCurrentPosition bool    `json:"use_current_position"`
	FixedX             int     `json:"fixed_x"`
	FixedY             int     `json:"fixed_y"`
	InitialDelay       float64 `json:"initial_delay"`
	PlaySound          bool    `json:"play_sound"`
	MinimizeOnStart    bool    `json:"minimize_on_start"`
}

// SequenceSettings holds the sequence and its playback options.
type SequenceSettings struct {
	ExecutionMode    ExecutionMode `json:"execution_mode"`
	Steps            []ClickStep   `json:"current_sequence"`
	SequenceRepeats  int           `json:"sequence_repeats"`
	SequencePause    float64       `json:"sequence_pause"`
	InfiniteSequence bool          `json:"infinite_sequence"`
}

// Settings is the full user configuration persisted in a profile.
type Settings struct {
	Basic    BasicSettings    `json:"basic_settings"`
	Advanced AdvancedSettings `json:"advanced_settings"`
	Sequence SequenceSettings `json:"sequence_settings"`
}

// DefaultSettings returns the safe configuration used when nothing else applies.
func DefaultSettings() Settings {
	return Settings{
		Basic: BasicSettings{
			MinInterval:    1,
			MaxInterval:    5,
			InfiniteClicks: true,
			MaxClicks:      100,
		},
		Advanced: AdvancedSettings{
			ClickType:          ButtonLeft,
			UseCurrentPosition: true,
			FixedX:             100,
			FixedY:             100,
			InitialDelay:       3,
		},
		Sequence: SequenceSettings{
			ExecutionMode:   ModeSingle,
			Steps:           []ClickStep{},
			SequenceRepeats: 1,
			SequencePause:   1.0,
		},
	}
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	out := s
	out.Sequence.Steps = append([]ClickStep(nil), s.Sequence.Steps...)
	if out.Sequence.Steps == nil {
		out.Sequence.Steps = []ClickStep{}
	}
	return out
}

// RunConfig is the immutable snapshot a run executes from.
type RunConfig struct {
	Mode ExecutionMode

	// InitialDelay is the cancellable countdown before the first click.
	InitialDelay time.Duration

	// Single-click mode.
	Interval           interval.Range
	Button             Button
	Double             bool
	UseCurrentPosition bool
	FixedX             int
	FixedY             int
	InfiniteClicks     bool
	MaxClicks          int

	// Sequence mode.
	Steps           []ClickStep
	InfiniteRepeats bool
	Repeats         int
	Pause           time.Duration
}

// RunConfig builds a validated run snapshot from the settings.
func (s Settings) RunConfig() (RunConfig, error) {
	cfg := RunConfig{
		Mode:               s.Sequence.ExecutionMode,
		InitialDelay:       interval.Duration(s.Advanced.InitialDelay),
		Interval:           interval.Range{Min: s.Basic.MinInterval, Max: s.Basic.MaxInterval},
		Button:             s.Advanced.ClickType,
		Double:             s.Advanced.DoubleClick,
		UseCurrentPosition: s.Advanced.UseCurrentPosition,
		FixedX:             s.Advanced.FixedX,
		FixedY:             s.Advanced.FixedY,
		InfiniteClicks:     s.Basic.InfiniteClicks,
		MaxClicks:          s.Basic.MaxClicks,
		Steps:              append([]ClickStep(nil), s.Sequence.Steps...),
		InfiniteRepeats:    s.Sequence.InfiniteSequence,
		Repeats:            s.Sequence.SequenceRepeats,
		Pause:              interval.Duration(s.Sequence.SequencePause),
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSingle
	}

	validation := &ValidationErrors{}
	if s.Advanced.InitialDelay < 0 || math.IsNaN(s.Advanced.InitialDelay) {
		validation.AddMessage("initial_delay", "must not be negative")
	} else if s.Advanced.InitialDelay > interval.MaxSeconds {
		validation.AddMessage("initial_delay", fmt.Sprintf("must be at most %gs (got %g)", interval.MaxSeconds, s.Advanced.InitialDelay))
	}
	if s.Sequence.SequencePause < 0 || math.IsNaN(s.Sequence.SequencePause) {
		validation.AddMessage("sequence_pause", "must not be negative")
	} else if s.Sequence.SequencePause > interval.MaxSeconds {
		validation.AddMessage("sequence_pause", fmt.Sprintf("must be at most %gs (got %g)", interval.MaxSeconds, s.Sequence.SequencePause))
	}
	if err := validation.Err(); err != nil {
		return RunConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// maxWait bounds the initial delay and the sequence pause.
const maxWait = time.Duration(interval.MaxSeconds * float64(time.Second))

// Validate checks everything a run needs before it may start.
func (c RunConfig) Validate() error {
	validation := &ValidationErrors{}
	if c.InitialDelay < 0 {
		validation.AddMessage("initial_delay", "must not be negative")
	}
	if c.InitialDelay > maxWait {
		validation.AddMessage("initial_delay", fmt.Sprintf("must be at most %s (got %s)", maxWait, c.InitialDelay))
	}

	switch c.Mode {
	case ModeSingle:
		validation.Add("interval", c.Interval.Check())
		if !c.InfiniteClicks && c.MaxClicks <= 0 {
			validation.AddMessage("max_clicks", "must be greater than 0")
		}
		if !c.UseCurrentPosition && (c.FixedX < 0 || c.FixedY < 0) {
			validation.AddMessage("fixed_position", fmt.Sprintf("coordinates must be positive (got %d, %d)", c.FixedX, c.FixedY))
		}
		if !c.Button.Valid() {
			validation.AddMessage("click_type", fmt.Sprintf("unknown button %q", c.Button))
		}
	case ModeSequence:
		if len(c.Steps) == 0 {
			validation.AddMessage("sequence", "no sequence defined")
		}
		if len(c.Steps) > MaxSequenceLength {
			validation.AddMessage("sequence", fmt.Sprintf("at most %d steps allowed (got %d)", MaxSequenceLength, len(c.Steps)))
		}
		if !c.InfiniteRepeats && c.Repeats <= 0 {
			validation.AddMessage("sequence_repeats", "must be greater than 0")
		}
		if c.Pause < 0 {
			validation.AddMessage("sequence_pause", "must not be negative")
		}
		if c.Pause > maxWait {
			validation.AddMessage("sequence_pause", fmt.Sprintf("must be at most %s (got %s)", maxWait, c.Pause))
		}
	default:
		validation.AddMessage("execution_mode", fmt.Sprintf("unknown mode %q", c.Mode))
	}
	return validation.Err()
}
