package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/autoclick/internal/logging"
	"github.com/opencode-ai/autoclick/internal/models"
	"github.com/opencode-ai/autoclick/internal/profile"
	"github.com/opencode-ai/autoclick/internal/recorder"
	"github.com/opencode-ai/autoclick/internal/sequence"
	"github.com/opencode-ai/autoclick/internal/tui"
)

var (
	recordProfile string
	recordAppend  bool
	recordOriginX int
	recordOriginY int
)

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVarP(&recordProfile, "profile", "p", "", "profile that receives the sequence (required)")
	recordCmd.Flags().BoolVar(&recordAppend, "append", false, "keep the profile's existing steps")
	recordCmd.Flags().IntVar(&recordOriginX, "origin-x", 0, "screen x of the terminal's top-left cell")
	recordCmd.Flags().IntVar(&recordOriginY, "origin-y", 0, "screen y of the terminal's top-left cell")
	_ = recordCmd.MarkFlagRequired("profile")
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a click sequence",
	Long: `Record clicks into a profile's sequence. Press s to start and stop recording,
then click inside the terminal. Positions come from the system cursor when the
backend can report it, otherwise from the clicked cell offset by --origin-x/--origin-y.`,
	Example: `  autoclick record --profile farm
  autoclick record --profile farm --append`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if IsNonInteractive() {
			return &PreflightError{
				Message:  "recording requires an interactive terminal",
				Hint:     "Use the sequence commands to add steps by coordinate",
				NextStep: "autoclick sequence add --profile NAME --x 100 --y 100",
			}
		}
		return runRecorder(cmd.Context())
	},
}

func runRecorder(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store := openProfileStore()
	settings, err := loadOrDefault(store, recordProfile)
	if err != nil {
		return err
	}

	steps := sequence.NewStore()
	if recordAppend {
		steps.Set(settings.Sequence.Steps)
	}

	inj, err := openInjector()
	if err != nil {
		return err
	}

	closeLog, err := redirectLogsToFile()
	if err != nil {
		return err
	}
	view := tui.NewRecorderView(steps, tui.RecorderOptions{
		Title:  fmt.Sprintf("Recording into %q", recordProfile),
		Styles: themeStyles(),
		Recorder: []recorder.Option{
			recorder.WithPosition(func() (int, int, error) { return inj.CursorPosition(ctx) }),
			recorder.WithOrigin(func() (int, int, error) { return recordOriginX, recordOriginY, nil }),
			recorder.WithLogger(logging.Component("recorder")),
		},
	})
	program := tea.NewProgram(view, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, runErr := program.Run()
	view.Recorder().Stop()
	closeLog()

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("recorder failed: %w", runErr)
	}
	if !view.Saved() {
		fmt.Fprintln(os.Stderr, "Recording discarded.")
		return nil
	}

	settings.Sequence.Steps = steps.Steps()
	settings.Sequence.ExecutionMode = models.ModeSequence
	path, err := store.Save(recordProfile, settings, true)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return WriteOutput(os.Stdout, map[string]any{
			"profile": recordProfile,
			"path":    path,
			"steps":   len(settings.Sequence.Steps),
		})
	}
	fmt.Printf("Saved %d steps to profile %q (%s)\n", len(settings.Sequence.Steps), recordProfile, path)
	return nil
}

// loadOrDefault loads name, or returns defaults when it does not exist yet.
func loadOrDefault(store *profile.Store, name string) (models.Settings, error) {
	loaded, err := store.Load(name)
	if errors.Is(err, profile.ErrNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	return loaded.Settings, nil
}
