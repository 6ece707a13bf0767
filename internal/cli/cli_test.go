package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/autoclick/internal/config"
	"github.com/opencode-ai/autoclick/internal/engine"
	"github.com/opencode-ai/autoclick/internal/models"
	"github.com/opencode-ai/autoclick/internal/sequence"
)

func parsed(t *testing.T, add func(*cobra.Command), args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	add(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags %v: %v", args, err)
	}
	return cmd
}

func TestSingleFlagsApply(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, s models.Settings)
	}{
		{
			name: "no flags keeps profile values",
			args: nil,
			check: func(t *testing.T, s models.Settings) {
				if s.Basic.MinInterval != 1 || s.Basic.MaxInterval != 5 {
					t.Errorf("interval = %v-%v, want 1-5", s.Basic.MinInterval, s.Basic.MaxInterval)
				}
				if !s.Advanced.UseCurrentPosition {
					t.Error("expected current position")
				}
			},
		},
		{
			name: "max clicks turns off infinite",
			args: []string{"--max-clicks", "20", "--min", "0.5", "--max", "2"},
			check: func(t *testing.T, s models.Settings) {
				if s.Basic.InfiniteClicks || s.Basic.MaxClicks != 20 {
					t.Errorf("clicks = %v/%d, want finite 20", s.Basic.InfiniteClicks, s.Basic.MaxClicks)
				}
				if s.Basic.MinInterval != 0.5 || s.Basic.MaxInterval != 2 {
					t.Errorf("interval = %v-%v, want 0.5-2", s.Basic.MinInterval, s.Basic.MaxInterval)
				}
			},
		},
		{
			name: "explicit infinite wins",
			args: []string{"--max-clicks", "20", "--infinite"},
			check: func(t *testing.T, s models.Settings) {
				if !s.Basic.InfiniteClicks {
					t.Error("expected infinite clicks")
				}
			},
		},
		{
			name: "coordinate fixes position",
			args: []string{"--x", "640"},
			check: func(t *testing.T, s models.Settings) {
				if s.Advanced.UseCurrentPosition {
					t.Error("expected fixed position")
				}
				if s.Advanced.FixedX != 640 || s.Advanced.FixedY != 100 {
					t.Errorf("position = (%d, %d), want (640, 100)", s.Advanced.FixedX, s.Advanced.FixedY)
				}
			},
		},
		{
			name: "button and double",
			args: []string{"--button", "RIGHT", "--double", "--initial-delay", "0"},
			check: func(t *testing.T, s models.Settings) {
				if s.Advanced.ClickType != models.ButtonRight || !s.Advanced.DoubleClick {
					t.Errorf("click = %s double=%v", s.Advanced.ClickType, s.Advanced.DoubleClick)
				}
				if s.Advanced.InitialDelay != 0 {
					t.Errorf("initial delay = %v, want 0", s.Advanced.InitialDelay)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f singleFlags
			cmd := parsed(t, func(c *cobra.Command) { addSingleFlags(c, &f) }, tt.args...)
			s := models.DefaultSettings()
			s.Sequence.ExecutionMode = models.ModeSequence
			if err := f.apply(cmd, &s); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if s.Sequence.ExecutionMode != models.ModeSingle {
				t.Errorf("mode = %s, want single", s.Sequence.ExecutionMode)
			}
			tt.check(t, s)
		})
	}
}

func TestSingleFlagsRejectUnknownButton(t *testing.T) {
	var f singleFlags
	cmd := parsed(t, func(c *cobra.Command) { addSingleFlags(c, &f) }, "--button", "side")
	s := models.DefaultSettings()
	err := f.apply(cmd, &s)
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSequenceFlagsApply(t *testing.T) {
	var f sequenceFlags
	cmd := parsed(t, func(c *cobra.Command) { addSequenceFlags(c, &f) }, "--repeats", "3", "--pause", "0.25")

	s := models.DefaultSettings()
	s.Sequence.InfiniteSequence = true
	f.apply(cmd, &s)

	if s.Sequence.ExecutionMode != models.ModeSequence {
		t.Errorf("mode = %s, want sequence", s.Sequence.ExecutionMode)
	}
	if s.Sequence.InfiniteSequence || s.Sequence.SequenceRepeats != 3 {
		t.Errorf("repeats = %v/%d, want finite 3", s.Sequence.InfiniteSequence, s.Sequence.SequenceRepeats)
	}
	if s.Sequence.SequencePause != 0.25 {
		t.Errorf("pause = %v, want 0.25", s.Sequence.SequencePause)
	}
}

func TestStepFlagsOverlay(t *testing.T) {
	base := models.ClickStep{X: 10, Y: 20, Button: models.ButtonLeft, Delay: 1}

	tests := []struct {
		name    string
		args    []string
		want    models.ClickStep
		wantErr bool
	}{
		{name: "unchanged", want: base},
		{name: "delay only", args: []string{"--delay", "2.5"}, want: models.ClickStep{X: 10, Y: 20, Button: models.ButtonLeft, Delay: 2.5}},
		{name: "all fields", args: []string{"--x", "1", "--y", "2", "--button", "middle", "--double"}, want: models.ClickStep{X: 1, Y: 2, Button: models.ButtonMiddle, Double: true, Delay: 1}},
		{name: "negative x", args: []string{"--x", "-5"}, wantErr: true},
		{name: "beyond max coordinate", args: []string{"--y", "40000"}, wantErr: true},
		{name: "negative delay", args: []string{"--delay", "-1"}, wantErr: true},
		{name: "bad button", args: []string{"--button", "back"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f stepFlags
			cmd := parsed(t, func(c *cobra.Command) { addStepFlags(c, &f) }, tt.args...)
			got, err := f.step(cmd, base)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("step: %v", err)
			}
			if got != tt.want {
				t.Errorf("step = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func withScreen(t *testing.T, w, h int) {
	t.Helper()
	prev := screenSizeFunc
	screenSizeFunc = func(context.Context) (int, int, error) { return w, h, nil }
	t.Cleanup(func() { screenSizeFunc = prev })
}

func testPrompter(answer string, interactive bool) (*prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &prompter{
		in:          strings.NewReader(answer),
		out:         out,
		interactive: func() bool { return interactive },
	}, out
}

func TestConfirmStep(t *testing.T) {
	withScreen(t, 1920, 1080)

	tests := []struct {
		name        string
		step        models.ClickStep
		answer      string
		interactive bool
		assumeYes   bool
		wantPrompt  bool
		wantErr     error
		wantAnyErr  bool
		wantDelay   float64
	}{
		{name: "on screen", step: models.ClickStep{X: 100, Y: 100, Delay: 1}, wantDelay: 1},
		{name: "off screen accepted", step: models.ClickStep{X: 2500, Y: 100, Delay: 1}, answer: "y\n", interactive: true, wantPrompt: true, wantDelay: 1},
		{name: "off screen declined", step: models.ClickStep{X: 100, Y: 1080, Delay: 1}, answer: "n\n", interactive: true, wantPrompt: true, wantErr: errDeclined},
		{name: "long delay declined", step: models.ClickStep{X: 1, Y: 1, Delay: 3600.5}, answer: "\n", interactive: true, wantPrompt: true, wantErr: errDeclined},
		{name: "long delay accepted is capped", step: models.ClickStep{X: 1, Y: 1, Delay: 1e12}, answer: "yes\n", interactive: true, wantPrompt: true, wantDelay: 3600},
		{name: "exactly one hour", step: models.ClickStep{X: 1, Y: 1, Delay: 3600}, wantDelay: 3600},
		{name: "yes skips prompt", step: models.ClickStep{X: 5000, Y: 5000, Delay: 7200}, assumeYes: true, wantDelay: 3600},
		{name: "non interactive fails", step: models.ClickStep{X: 5000, Y: 1, Delay: 1}, wantAnyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := testPrompter(tt.answer, tt.interactive)
			p.assumeYes = tt.assumeYes

			got, err := confirmStep(context.Background(), tt.step, p)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			case tt.wantAnyErr:
				var preflight *PreflightError
				if !errors.As(err, &preflight) {
					t.Fatalf("err = %v, want preflight error", err)
				}
			case err != nil:
				t.Fatalf("unexpected error: %v", err)
			default:
				if got.Delay != tt.wantDelay {
					t.Errorf("delay = %g, want %g", got.Delay, tt.wantDelay)
				}
				if got.X != tt.step.X || got.Y != tt.step.Y {
					t.Errorf("position = (%d, %d), want (%d, %d)", got.X, got.Y, tt.step.X, tt.step.Y)
				}
			}
			if prompted := out.Len() > 0; prompted != tt.wantPrompt {
				t.Errorf("prompted = %v, want %v (%q)", prompted, tt.wantPrompt, out.String())
			}
		})
	}
}

func TestScreenSizeFallsBackToConfig(t *testing.T) {
	prev := screenSizeFunc
	screenSizeFunc = func(context.Context) (int, int, error) { return 0, 0, errors.New("no display") }
	t.Cleanup(func() { screenSizeFunc = prev })

	w, h := screenSize(context.Background())
	d := config.DefaultConfig()
	if w != d.Injector.ScreenWidth || h != d.Injector.ScreenHeight {
		t.Errorf("size = %dx%d, want %dx%d", w, h, d.Injector.ScreenWidth, d.Injector.ScreenHeight)
	}
}

func TestParseStepIndex(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{arg: "1", want: 0},
		{arg: "12", want: 11},
		{arg: "0", wantErr: true},
		{arg: "-2", wantErr: true},
		{arg: "two", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseStepIndex(tt.arg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseStepIndex(%q) expected error", tt.arg)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseStepIndex(%q) = %d, %v; want %d", tt.arg, got, err, tt.want)
		}
	}
}

func useProfilesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Profiles.Dir = dir
	prev := appConfig
	appConfig = cfg
	t.Cleanup(func() { appConfig = prev })
	return dir
}

func TestEditSequencePersists(t *testing.T) {
	useProfilesDir(t)
	prevProfile := seqProfile
	seqProfile = "farm"
	t.Cleanup(func() { seqProfile = prevProfile })

	add := func(x, y int) func(*sequence.Store) (string, error) {
		return func(store *sequence.Store) (string, error) {
			return "added", store.Append(models.ClickStep{X: x, Y: y, Button: models.ButtonLeft, Delay: 1})
		}
	}
	if err := editSequence(add(1, 2)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := editSequence(add(3, 4)); err != nil {
		t.Fatalf("second add: %v", err)
	}

	failed := errors.New("boom")
	err := editSequence(func(store *sequence.Store) (string, error) {
		store.Clear()
		return "", failed
	})
	if !errors.Is(err, failed) {
		t.Fatalf("err = %v, want %v", err, failed)
	}

	settings, err := loadRunSettings("farm")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	steps := settings.Sequence.Steps
	if len(steps) != 2 || steps[0].X != 1 || steps[1].Y != 4 {
		t.Errorf("steps = %+v, want two steps kept after failed edit", steps)
	}
}

func TestConfirmedLongDelaySurvivesReload(t *testing.T) {
	useProfilesDir(t)
	withScreen(t, 1920, 1080)
	prevProfile := seqProfile
	seqProfile = "slow"
	t.Cleanup(func() { seqProfile = prevProfile })

	p, _ := testPrompter("", false)
	p.assumeYes = true
	err := editSequence(func(store *sequence.Store) (string, error) {
		step, err := confirmStep(context.Background(), models.ClickStep{X: 10, Y: 20, Button: models.ButtonRight, Delay: 7200}, p)
		if err != nil {
			return "", err
		}
		return "added", store.Append(step)
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	settings, err := loadRunSettings("slow")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := models.ClickStep{X: 10, Y: 20, Button: models.ButtonRight, Delay: models.MaxStepDelay}
	if steps := settings.Sequence.Steps; len(steps) != 1 || steps[0] != want {
		t.Errorf("steps = %+v, want [%+v]", steps, want)
	}
}

func TestOutcomeError(t *testing.T) {
	tests := []struct {
		name        string
		summary     *engine.Summary
		interrupted bool
		wantCode    int
	}{
		{name: "completed", summary: &engine.Summary{Outcome: models.OutcomeCompleted}, wantCode: 0},
		{name: "cancelled", summary: &engine.Summary{Outcome: models.OutcomeCancelled}, wantCode: 0},
		{name: "emergency", summary: &engine.Summary{Outcome: models.OutcomeEmergency}, wantCode: 2},
		{name: "too many errors", summary: &engine.Summary{Outcome: models.OutcomeTooManyErrors}, wantCode: 1},
		{name: "interrupted without summary", interrupted: true, wantCode: 0},
		{name: "missing summary", wantCode: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(outcomeError(tt.summary, tt.interrupted)); got != tt.wantCode {
				t.Errorf("exit code = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestStartErrorHints(t *testing.T) {
	var preflight *PreflightError
	if err := startError(engine.ErrLicenseBlocked); !errors.As(err, &preflight) {
		t.Fatalf("license error not a preflight error: %v", err)
	}
	if !strings.Contains(preflight.NextStep, "license activate") {
		t.Errorf("next step = %q", preflight.NextStep)
	}

	wrapped := &models.ValidationError{Field: "sequence", Message: "no sequence defined", Err: engine.ErrEmptySequence}
	if err := startError(wrapped); !errors.As(err, &preflight) {
		t.Fatalf("empty sequence not a preflight error: %v", err)
	}

	other := errors.New("x")
	if err := startError(other); !errors.Is(err, other) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	ReportError(&buf, &PreflightError{Message: "nope", Hint: "try this", NextStep: "autoclick help"})
	want := "Error: nope\nHint: try this\nNext: autoclick help\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	ReportError(&buf, &exitError{code: 2, err: errors.New("quiet"), silent: true})
	if buf.Len() != 0 {
		t.Errorf("silent error printed %q", buf.String())
	}
}

func TestFormatStatusLabel(t *testing.T) {
	tests := []struct {
		label, status, want string
	}{
		{"OK", "completed", "OK completed"},
		{"ERR", "too_many_errors", "ERR too many errors"},
		{"WARN", "  ", "WARN"},
	}
	for _, tt := range tests {
		if got := formatStatusLabel(tt.label, tt.status); got != tt.want {
			t.Errorf("formatStatusLabel(%q, %q) = %q, want %q", tt.label, tt.status, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"sub second": {in: "123456789ns", want: "120ms"},
		"seconds":    {in: "1.26s", want: "1.3s"},
		"minutes":    {in: "90.4s", want: "1m30s"},
	}
	for name, tt := range tests {
		d, err := time.ParseDuration(tt.in)
		if err != nil {
			t.Fatalf("parse %s: %v", tt.in, err)
		}
		if got := formatDuration(d); got != tt.want {
			t.Errorf("%s: formatDuration(%s) = %q, want %q", name, tt.in, got, tt.want)
		}
	}
}

func TestWriteTablePadsRows(t *testing.T) {
	var buf bytes.Buffer
	err := writeTable(&buf, []string{"KEY", "NAME", "STATUS"}, [][]string{
		{"a", "Alpha", "ok"},
		{"bb", "Beta"},
	})
	if err != nil {
		t.Fatalf("writeTable: %v", err)
	}
	want := "KEY  NAME   STATUS\na    Alpha  ok\nbb   Beta\n"
	if buf.String() != want {
		t.Errorf("table = %q, want %q", buf.String(), want)
	}
}
