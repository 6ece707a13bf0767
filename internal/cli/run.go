package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/autoclick/internal/config"
	"github.com/opencode-ai/autoclick/internal/engine"
	"github.com/opencode-ai/autoclick/internal/logging"
	"github.com/opencode-ai/autoclick/internal/models"
	"github.com/opencode-ai/autoclick/internal/tui"
)

// singleFlags are the single-click overrides. Only flags the user set are applied.
type singleFlags struct {
	min          float64
	max          float64
	maxClicks    int
	infinite     bool
	button       string
	double       bool
	x            int
	y            int
	initialDelay float64
}

// sequenceFlags are the sequence playback overrides.
type sequenceFlags struct {
	repeats  int
	infinite bool
	pause    float64
}

var (
	runProfile  string
	runTUI      bool
	runSingle   singleFlags
	runSequence sequenceFlags
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runSingleCmd)
	runCmd.AddCommand(runSequenceCmd)

	runCmd.PersistentFlags().StringVarP(&runProfile, "profile", "p", "", "start from a saved profile")
	runCmd.PersistentFlags().BoolVar(&runTUI, "tui", false, "show the live monitor")

	addSingleFlags(runSingleCmd, &runSingle)
	addSequenceFlags(runSequenceCmd, &runSequence)
}

func addSingleFlags(cmd *cobra.Command, f *singleFlags) {
	d := models.DefaultSettings()
	cmd.Flags().Float64Var(&f.min, "min", d.Basic.MinInterval, "minimum seconds between clicks")
	cmd.Flags().Float64Var(&f.max, "max", d.Basic.MaxInterval, "maximum seconds between clicks")
	cmd.Flags().IntVar(&f.maxClicks, "max-clicks", d.Basic.MaxClicks, "stop after this many clicks")
	cmd.Flags().BoolVar(&f.infinite, "infinite", d.Basic.InfiniteClicks, "click until stopped")
	cmd.Flags().StringVar(&f.button, "button", string(d.Advanced.ClickType), "button to click (left|middle|right)")
	cmd.Flags().BoolVar(&f.double, "double", d.Advanced.DoubleClick, "double click")
	cmd.Flags().IntVar(&f.x, "x", d.Advanced.FixedX, "fixed x coordinate (implies a fixed position)")
	cmd.Flags().IntVar(&f.y, "y", d.Advanced.FixedY, "fixed y coordinate (implies a fixed position)")
	cmd.Flags().Float64Var(&f.initialDelay, "initial-delay", d.Advanced.InitialDelay, "seconds to wait before the first click")
}

func addSequenceFlags(cmd *cobra.Command, f *sequenceFlags) {
	d := models.DefaultSettings()
	cmd.Flags().IntVar(&f.repeats, "repeats", d.Sequence.SequenceRepeats, "times to play the sequence")
	cmd.Flags().BoolVar(&f.infinite, "infinite", d.Sequence.InfiniteSequence, "repeat until stopped")
	cmd.Flags().Float64Var(&f.pause, "pause", d.Sequence.SequencePause, "seconds between repeats")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a click run",
	Long:  "Start a single-click or sequence run. The run continues until it completes or is interrupted.",
}

var runSingleCmd = &cobra.Command{
	Use:   "single",
	Short: "Click one point at random intervals",
	Long: `Click at the cursor or a fixed point, waiting a random interval between clicks.
Settings come from --profile when given, then from flags.`,
	Example: `  autoclick run single --min 0.5 --max 2 --max-clicks 20
  autoclick run single --profile office --x 400 --y 300 --tui`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadRunSettings(runProfile)
		if err != nil {
			return err
		}
		if err := runSingle.apply(cmd, &settings); err != nil {
			return err
		}
		return runFromSettings(cmd.Context(), settings)
	},
}

var runSequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Play back a recorded sequence",
	Long:  "Play the sequence stored in a profile, repeating it with a pause between rounds.",
	Example: `  autoclick run sequence --profile farm --repeats 10 --pause 2
  autoclick run sequence --profile farm --infinite --tui`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runProfile == "" {
			return &PreflightError{
				Message:  "a profile is required for sequence mode",
				Hint:     "Record a sequence into a profile first",
				NextStep: "autoclick record --profile NAME",
			}
		}
		settings, err := loadRunSettings(runProfile)
		if err != nil {
			return err
		}
		runSequence.apply(cmd, &settings)
		return runFromSettings(cmd.Context(), settings)
	},
}

func (f *singleFlags) apply(cmd *cobra.Command, s *models.Settings) error {
	flags := cmd.Flags()
	s.Sequence.ExecutionMode = models.ModeSingle
	if flags.Changed("min") {
		s.Basic.MinInterval = f.min
	}
	if flags.Changed("max") {
		s.Basic.MaxInterval = f.max
	}
	if flags.Changed("max-clicks") {
		s.Basic.MaxClicks = f.maxClicks
		s.Basic.InfiniteClicks = false
	}
	if flags.Changed("infinite") {
		s.Basic.InfiniteClicks = f.infinite
	}
	if flags.Changed("button") {
		button, err := models.ParseButton(f.button)
		if err != nil {
			return err
		}
		s.Advanced.ClickType = button
	}
	if flags.Changed("double") {
		s.Advanced.DoubleClick = f.double
	}
	if flags.Changed("x") || flags.Changed("y") {
		s.Advanced.UseCurrentPosition = false
		if flags.Changed("x") {
			s.Advanced.FixedX = f.x
		}
		if flags.Changed("y") {
			s.Advanced.FixedY = f.y
		}
	}
	if flags.Changed("initial-delay") {
		s.Advanced.InitialDelay = f.initialDelay
	}
	return nil
}

func (f *sequenceFlags) apply(cmd *cobra.Command, s *models.Settings) {
	flags := cmd.Flags()
	s.Sequence.ExecutionMode = models.ModeSequence
	if flags.Changed("repeats") {
		s.Sequence.SequenceRepeats = f.repeats
		s.Sequence.InfiniteSequence = false
	}
	if flags.Changed("infinite") {
		s.Sequence.InfiniteSequence = f.infinite
	}
	if flags.Changed("pause") {
		s.Sequence.SequencePause = f.pause
	}
}

func loadRunSettings(name string) (models.Settings, error) {
	if name == "" {
		return models.DefaultSettings(), nil
	}
	loaded, err := openProfileStore().Load(name)
	if err != nil {
		return models.Settings{}, err
	}
	return loaded.Settings, nil
}

func runFromSettings(ctx context.Context, settings models.Settings) error {
	cfg, err := settings.RunConfig()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if runTUI {
		return executeMonitored(ctx, cfg)
	}
	return executePlain(ctx, cfg)
}

// runDeps are the collaborators every run needs.
type runDeps struct {
	engineOpts engine.Options
	close      func()
	sinks      engine.MultiSink
	build      func(sink engine.Sink, dispatch engine.Dispatcher) *engine.Engine
}

func prepareRun(ctx context.Context) (*runDeps, error) {
	inj, err := openInjector()
	if err != nil {
		return nil, err
	}
	gate, err := openLicense()
	if err != nil {
		return nil, err
	}
	if !gate.CanUse() {
		return nil, licenseBlockedError()
	}

	database, err := openJournal(ctx)
	if err != nil {
		return nil, err
	}

	deps := &runDeps{
		engineOpts: engine.OptionsFromConfig(GetConfig().Engine),
		close:      func() {},
	}
	if database != nil {
		deps.sinks = append(deps.sinks, engine.NewDatabaseSink(database))
		deps.close = func() { database.Close() }
	}
	deps.build = func(sink engine.Sink, dispatch engine.Dispatcher) *engine.Engine {
		return engine.New(inj, gate, sink, dispatch, logging.Component("engine"), deps.engineOpts)
	}
	return deps, nil
}

func executePlain(ctx context.Context, cfg models.RunConfig) error {
	deps, err := prepareRun(ctx)
	if err != nil {
		return err
	}
	defer deps.close()

	var summary *engine.Summary
	capture := engine.SinkFunc(func(_ context.Context, ev engine.Event) error {
		if ev.Kind == engine.EventFinished {
			summary = ev.Summary
		}
		return nil
	})
	var out engine.Sink = engine.NewLineSink(os.Stdout)
	if IsJSONOutput() {
		out = engine.NewJSONSink(os.Stdout)
	}
	sink := append(engine.MultiSink{out, capture}, deps.sinks...)
	eng := deps.build(sink, &engine.DirectDispatcher{})

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := eng.Start(context.Background(), cfg); err != nil {
		return startError(err)
	}

	interrupted := false
	select {
	case <-eng.Done():
	case <-sigCtx.Done():
		interrupted = true
		if err := eng.Stop(); err != nil && !errors.Is(err, engine.ErrNotRunning) {
			// The abandoned worker may still publish; do not read its summary.
			return &exitError{code: 1, err: err}
		}
	}
	<-eng.Done()

	return outcomeError(summary, interrupted)
}

func executeMonitored(ctx context.Context, cfg models.RunConfig) error {
	if IsNonInteractive() {
		return &PreflightError{
			Message:  "the monitor requires an interactive terminal",
			Hint:     "Run without --tui to stream events as text",
			NextStep: "autoclick run single",
		}
	}
	closeLog, err := redirectLogsToFile()
	if err != nil {
		return err
	}
	defer closeLog()

	deps, err := prepareRun(ctx)
	if err != nil {
		return err
	}
	defer deps.close()

	feed := tui.NewFeed(0)
	dispatch := tui.NewProgramDispatcher()
	sink := append(engine.MultiSink{feed}, deps.sinks...)
	eng := deps.build(sink, dispatch)

	monitor := tui.NewMonitor(eng, feed, tui.MonitorOptions{
		Title:  fmt.Sprintf("autoclick %s", cfg.Mode),
		Config: cfg,
		Styles: themeStyles(),
	})
	program := tea.NewProgram(monitor, tea.WithAltScreen(), tea.WithContext(ctx))
	dispatch.Attach(program)
	final, runErr := program.Run()
	dispatch.Detach()

	if eng.State() != engine.StateIdle {
		if err := eng.Stop(); err != nil && !errors.Is(err, engine.ErrNotRunning) {
			lg := logging.Component("cli")
			lg.Warn().Err(err).Msg("stop after monitor exit")
		}
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor failed: %w", runErr)
	}

	if m, ok := final.(tui.Monitor); ok {
		if err := m.Err(); err != nil {
			return startError(err)
		}
	}
	summary := feed.Summary()
	if summary != nil {
		fmt.Fprintf(os.Stdout, "Run %s: %d clicks in %s\n", formatOutcome(summary.Outcome), summary.Clicks, summary.Elapsed.Round(time.Second))
	}
	return outcomeError(summary, true)
}

// redirectLogsToFile keeps log lines off the alternate screen while the monitor runs.
func redirectLogsToFile() (func(), error) {
	cfg := GetConfig()
	path := filepath.Join(config.DefaultConfigDir(), "autoclick.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if err := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "json", Output: file}); err != nil {
		file.Close()
		return nil, err
	}
	return func() {
		_ = logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: os.Stderr})
		file.Close()
	}, nil
}

func licenseBlockedError() error {
	return &PreflightError{
		Message:  engine.ErrLicenseBlocked.Error(),
		Hint:     "Set MASTER_LICENSE_KEY in your .env file and activate it",
		NextStep: "autoclick license activate KEY",
	}
}

func startError(err error) error {
	switch {
	case errors.Is(err, engine.ErrLicenseBlocked):
		return licenseBlockedError()
	case errors.Is(err, engine.ErrEmptySequence):
		return &PreflightError{
			Message:  err.Error(),
			Hint:     "Add steps to the profile's sequence",
			NextStep: "autoclick sequence add --profile NAME --x 100 --y 100",
		}
	}
	return fmt.Errorf("cannot start run: %w", err)
}

// outcomeError maps how a run ended onto the command result. A user
// interruption is not a failure.
func outcomeError(summary *engine.Summary, interrupted bool) error {
	if summary == nil {
		if interrupted {
			return nil
		}
		return errors.New("run ended without a summary")
	}
	switch summary.Outcome {
	case models.OutcomeCompleted, models.OutcomeCancelled:
		return nil
	case models.OutcomeEmergency:
		return &exitError{code: 2, err: errors.New("emergency stop: fail-safe corner reached"), silent: IsJSONOutput()}
	default:
		return &exitError{code: 1, err: fmt.Errorf("run ended: %s", summary.Outcome), silent: IsJSONOutput()}
	}
}
