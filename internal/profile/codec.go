package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"github.com/opencode-ai/autoclick/internal/models"
	"github.com/opencode-ai/autoclick/internal/sequence"
)

// Section keys every profile document must carry.
const (
	SectionBasic    = "basic_settings"
	SectionAdvanced = "advanced_settings"
	SectionSequence = "sequence_settings"
)

// Sections lists the required top-level keys in document order.
var Sections = []string{SectionBasic, SectionAdvanced, SectionSequence}

var (
	// ErrEmpty is returned for a zero-length or whitespace-only file.
	ErrEmpty = errors.New("empty profile")
	// ErrCorrupt is returned when the file is not valid JSON.
	ErrCorrupt = errors.New("corrupt profile")
	// ErrInvalidStructure is returned when the top level is not an object.
	ErrInvalidStructure = errors.New("invalid profile structure")
	// ErrMissingSection is returned when a required section is absent or not an object.
	ErrMissingSection = errors.New("missing or invalid section")
)

// Document is the persisted profile layout. Sections stay raw so that decoding
// can apply per-field fallbacks instead of failing on a mistyped value.
type Document struct {
	ProfileName    string          `json:"profile_name,omitempty"`
	CreatedDate    string          `json:"created_date,omitempty"`
	ExportedDate   string          `json:"exported_date,omitempty"`
	ImportedDate   string          `json:"imported_date,omitempty"`
	DuplicatedFrom string          `json:"duplicated_from,omitempty"`
	Basic          json.RawMessage `json:"basic_settings,omitempty"`
	Advanced       json.RawMessage `json:"advanced_settings,omitempty"`
	Sequence       json.RawMessage `json:"sequence_settings,omitempty"`
}

// DecodeReport describes what Decode had to correct.
type DecodeReport struct {
	// Fallback is set when the whole document was replaced by DefaultSettings.
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`

	// Corrections lists fields that were reset to their default.
	Corrections []string `json:"corrections,omitempty"`

	Sequence sequence.LoadReport `json:"sequence"`
}

// Encode builds a document from settings. It performs no I/O.
func Encode(name string, settings models.Settings) (*Document, error) {
	settings = settings.Clone()
	doc := &Document{ProfileName: name}

	var err error
	if doc.Basic, err = json.Marshal(settings.Basic); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", SectionBasic, err)
	}
	if doc.Advanced, err = json.Marshal(settings.Advanced); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", SectionAdvanced, err)
	}
	if doc.Sequence, err = json.Marshal(settings.Sequence); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", SectionSequence, err)
	}
	return doc, nil
}

// Marshal renders the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	return append(data, '\n'), nil
}

// Parse reads a document without interpreting its sections.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrCorrupt
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, ErrInvalidStructure
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructure, err)
	}
	return &doc, nil
}

// CheckSections reports the first required section that is missing or not an object.
func (d *Document) CheckSections() error {
	for _, section := range Sections {
		if !gjson.ParseBytes(d.section(section)).IsObject() {
			return fmt.Errorf("%w: %q", ErrMissingSection, section)
		}
	}
	return nil
}

func (d *Document) section(name string) json.RawMessage {
	switch name {
	case SectionBasic:
		return d.Basic
	case SectionAdvanced:
		return d.Advanced
	case SectionSequence:
		return d.Sequence
	}
	return nil
}

// Decode turns a document into settings. A missing or malformed section
// replaces the whole result with DefaultSettings. Individual fields that are
// out of range or cannot be coerced fall back to their own default.
func Decode(doc *Document) (models.Settings, DecodeReport) {
	var report DecodeReport
	if doc == nil {
		return fallback(&report, "no document")
	}
	if err := doc.CheckSections(); err != nil {
		return fallback(&report, err.Error())
	}

	var basic, advanced, seq map[string]any
	for _, s := range []struct {
		raw json.RawMessage
		out *map[string]any
	}{{doc.Basic, &basic}, {doc.Advanced, &advanced}, {doc.Sequence, &seq}} {
		if err := json.Unmarshal(s.raw, s.out); err != nil {
			return fallback(&report, err.Error())
		}
	}

	d := fieldDecoder{report: &report}
	defaults := models.DefaultSettings()
	out := defaults.Clone()

	out.Basic.MinInterval = d.float(basic, "min_interval", defaults.Basic.MinInterval, 0.001, 3600)
	out.Basic.MaxInterval = d.float(basic, "max_interval", defaults.Basic.MaxInterval, 0.001, 3600)
	if out.Basic.MinInterval > out.Basic.MaxInterval {
		d.correct("min_interval/max_interval", fmt.Sprintf("%g > %g", out.Basic.MinInterval, out.Basic.MaxInterval))
		out.Basic.MinInterval = defaults.Basic.MinInterval
		out.Basic.MaxInterval = defaults.Basic.MaxInterval
	}
	out.Basic.InfiniteClicks = d.bool(basic, "infinite_clicks", defaults.Basic.InfiniteClicks)
	out.Basic.MaxClicks = d.int(basic, "max_clicks", defaults.Basic.MaxClicks, 1, 10_000_000)

	out.Advanced.ClickType = d.button(advanced, "click_type")
	out.Advanced.DoubleClick = d.bool(advanced, "double_click", defaults.Advanced.DoubleClick)
	out.Advanced.UseCurrentPosition = d.bool(advanced, "use_current_position", defaults.Advanced.UseCurrentPosition)
	out.Advanced.FixedX = d.int(advanced, "fixed_x", defaults.Advanced.FixedX, 0, models.MaxCoordinate)
	out.Advanced.FixedY = d.int(advanced, "fixed_y", defaults.Advanced.FixedY, 0, models.MaxCoordinate)
	out.Advanced.InitialDelay = d.float(advanced, "initial_delay", defaults.Advanced.InitialDelay, 0, 3600)
	out.Advanced.PlaySound = d.bool(advanced, "play_sound", defaults.Advanced.PlaySound)
	out.Advanced.MinimizeOnStart = d.bool(advanced, "minimize_on_start", defaults.Advanced.MinimizeOnStart)

	out.Sequence.ExecutionMode = d.mode(seq, "execution_mode")
	out.Sequence.SequenceRepeats = d.int(seq, "sequence_repeats", defaults.Sequence.SequenceRepeats, 1, 100_000)
	out.Sequence.SequencePause = d.float(seq, "sequence_pause", defaults.Sequence.SequencePause, 0, 3600)
	out.Sequence.InfiniteSequence = d.bool(seq, "infinite_sequence", defaults.Sequence.InfiniteSequence)

	if raw, ok := seq["current_sequence"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			d.correct("current_sequence", "not a list")
		} else {
			out.Sequence.Steps, report.Sequence = sequence.Load(list)
		}
	}
	return out, report
}

func fallback(report *DecodeReport, reason string) (models.Settings, DecodeReport) {
	report.Fallback = true
	report.Reason = reason
	return models.DefaultSettings(), *report
}

// fieldDecoder coerces loosely typed section values. Profiles written by older
// versions store numbers as strings, so every numeric field goes through cast.
type fieldDecoder struct {
	report *DecodeReport
}

func (d fieldDecoder) correct(field, detail string) {
	d.report.Corrections = append(d.report.Corrections, fmt.Sprintf("%s: %s, using default", field, detail))
}

func (d fieldDecoder) float(m map[string]any, key string, def, lo, hi float64) float64 {
	raw, ok := m[key]
	if !ok {
		return def
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		d.correct(key, fmt.Sprintf("invalid value %v", raw))
		return def
	}
	if v < lo || v > hi {
		d.correct(key, fmt.Sprintf("%g outside [%g, %g]", v, lo, hi))
		return def
	}
	return v
}

func (d fieldDecoder) int(m map[string]any, key string, def, lo, hi int) int {
	raw, ok := m[key]
	if !ok {
		return def
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		d.correct(key, fmt.Sprintf("invalid value %v", raw))
		return def
	}
	if v < lo || v > hi {
		d.correct(key, fmt.Sprintf("%d outside [%d, %d]", v, lo, hi))
		return def
	}
	return v
}

func (d fieldDecoder) bool(m map[string]any, key string, def bool) bool {
	raw, ok := m[key]
	if !ok {
		return def
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		d.correct(key, fmt.Sprintf("invalid value %v", raw))
		return def
	}
	return v
}

func (d fieldDecoder) button(m map[string]any, key string) models.Button {
	raw, ok := m[key]
	if !ok {
		return models.ButtonLeft
	}
	b, err := models.ParseButton(cast.ToString(raw))
	if err != nil {
		d.correct(key, fmt.Sprintf("unknown button %v", raw))
		return models.ButtonLeft
	}
	return b
}

func (d fieldDecoder) mode(m map[string]any, key string) models.ExecutionMode {
	raw, ok := m[key]
	if !ok {
		return models.ModeSingle
	}
	mode := models.ExecutionMode(cast.ToString(raw))
	if !mode.Valid() {
		d.correct(key, fmt.Sprintf("unknown mode %v", raw))
		return models.ModeSingle
	}
	return mode
}

// Timestamp formats a stamp the way profile documents store them.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 and the naive ISO-8601 forms older profiles use.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
