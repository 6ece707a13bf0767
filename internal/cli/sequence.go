package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/autoclick/internal/logging"
	"github.com/opencode-ai/autoclick/internal/models"
	"github.com/opencode-ai/autoclick/internal/sequence"
)

var errDeclined = errors.New("cancelled")

// stepFlags hold a manually entered step.
type stepFlags struct {
	x      int
	y      int
	button string
	double bool
	delay  float64
}

var (
	seqProfile string
	seqYes     bool
	seqAdd     stepFlags
	seqEdit    stepFlags
)

func init() {
	rootCmd.AddCommand(sequenceCmd)
	sequenceCmd.AddCommand(sequenceShowCmd)
	sequenceCmd.AddCommand(sequenceAddCmd)
	sequenceCmd.AddCommand(sequenceEditCmd)
	sequenceCmd.AddCommand(sequenceRemoveCmd)
	sequenceCmd.AddCommand(sequenceClearCmd)

	sequenceCmd.PersistentFlags().StringVarP(&seqProfile, "profile", "p", "", "profile holding the sequence (required)")
	sequenceCmd.PersistentFlags().BoolVarP(&seqYes, "yes", "y", false, "accept confirmations")
	_ = sequenceCmd.MarkPersistentFlagRequired("profile")

	addStepFlags(sequenceAddCmd, &seqAdd)
	addStepFlags(sequenceEditCmd, &seqEdit)
	_ = sequenceAddCmd.MarkFlagRequired("x")
	_ = sequenceAddCmd.MarkFlagRequired("y")
}

func addStepFlags(cmd *cobra.Command, f *stepFlags) {
	cmd.Flags().IntVar(&f.x, "x", 0, "screen x coordinate")
	cmd.Flags().IntVar(&f.y, "y", 0, "screen y coordinate")
	cmd.Flags().StringVar(&f.button, "button", string(models.ButtonLeft), "button (left|middle|right)")
	cmd.Flags().BoolVar(&f.double, "double", false, "double click")
	cmd.Flags().Float64Var(&f.delay, "delay", models.DefaultStepDelay, "seconds to wait after the click")
}

var sequenceCmd = &cobra.Command{
	Use:     "sequence",
	Aliases: []string{"seq"},
	Short:   "Edit a profile's click sequence",
	Long:    "Show and edit the click sequence stored in a profile. Step numbers start at 1.",
}

var sequenceShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadRunSettings(seqProfile)
		if err != nil {
			return err
		}
		steps := settings.Sequence.Steps
		if IsJSONOutput() {
			return WriteOutput(os.Stdout, steps)
		}
		if len(steps) == 0 {
			fmt.Println("No steps recorded.")
			return nil
		}
		return writeTable(os.Stdout, []string{"#", "BUTTON", "X", "Y", "DOUBLE", "DELAY"}, stepRows(steps))
	},
}

var sequenceAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Append a step",
	Example: "  autoclick sequence add --profile farm --x 640 --y 480 --button right --delay 0.5",
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := seqAdd.step(cmd, models.ClickStep{Button: models.ButtonLeft, Delay: models.DefaultStepDelay})
		if err != nil {
			return err
		}
		return editSequence(func(store *sequence.Store) (string, error) {
			confirmed, err := confirmStep(cmd.Context(), step, newPrompter(seqYes))
			if err != nil {
				return "", err
			}
			if err := store.Append(confirmed); err != nil {
				return "", err
			}
			return fmt.Sprintf("Added step %d: %s", store.Len(), confirmed.Describe()), nil
		})
	},
}

var sequenceEditCmd = &cobra.Command{
	Use:     "edit INDEX",
	Short:   "Change fields of a step",
	Args:    cobra.ExactArgs(1),
	Example: "  autoclick sequence edit 2 --profile farm --delay 3",
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseStepIndex(args[0])
		if err != nil {
			return err
		}
		return editSequence(func(store *sequence.Store) (string, error) {
			current, err := store.At(index)
			if err != nil {
				return "", err
			}
			step, err := seqEdit.step(cmd, current)
			if err != nil {
				return "", err
			}
			step, err = confirmStep(cmd.Context(), step, newPrompter(seqYes))
			if err != nil {
				return "", err
			}
			if err := store.Replace(index, step); err != nil {
				return "", err
			}
			return fmt.Sprintf("Updated step %d: %s", index+1, step.Describe()), nil
		})
	},
}

var sequenceRemoveCmd = &cobra.Command{
	Use:     "remove INDEX",
	Aliases: []string{"rm"},
	Short:   "Delete a step",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseStepIndex(args[0])
		if err != nil {
			return err
		}
		return editSequence(func(store *sequence.Store) (string, error) {
			removed, err := store.Remove(index)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Removed step %d: %s", index+1, removed.Describe()), nil
		})
	},
}

var sequenceClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every step",
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSequence(func(store *sequence.Store) (string, error) {
			if store.Len() == 0 {
				return "Sequence already empty.", nil
			}
			ok, err := newPrompter(seqYes).confirm(fmt.Sprintf("Delete all %d steps?", store.Len()))
			if err != nil {
				return "", err
			}
			if !ok {
				return "", errDeclined
			}
			store.Clear()
			return "Sequence cleared.", nil
		})
	},
}

// step overlays the flags the user set onto base and validates the result strictly.
func (f *stepFlags) step(cmd *cobra.Command, base models.ClickStep) (models.ClickStep, error) {
	flags := cmd.Flags()
	out := base
	if flags.Changed("x") {
		out.X = f.x
	}
	if flags.Changed("y") {
		out.Y = f.y
	}
	if flags.Changed("button") {
		button, err := models.ParseButton(f.button)
		if err != nil {
			return models.ClickStep{}, err
		}
		out.Button = button
	}
	if flags.Changed("double") {
		out.Double = f.double
	}
	if flags.Changed("delay") {
		out.Delay = f.delay
	}
	if err := out.Validate(); err != nil {
		return models.ClickStep{}, err
	}
	return out, nil
}

// editSequence loads the profile's steps, applies fn, and saves the profile.
func editSequence(fn func(store *sequence.Store) (string, error)) error {
	profiles := openProfileStore()
	settings, err := loadOrDefault(profiles, seqProfile)
	if err != nil {
		return err
	}

	store := sequence.NewStore()
	store.Set(settings.Sequence.Steps)
	message, err := fn(store)
	if err != nil {
		return err
	}

	settings.Sequence.Steps = store.Steps()
	if _, err := profiles.Save(seqProfile, settings, true); err != nil {
		return err
	}
	if IsJSONOutput() {
		return WriteOutput(os.Stdout, settings.Sequence.Steps)
	}
	fmt.Println(message)
	return nil
}

// confirmStep asks before accepting a step that is off screen or waits over an
// hour. An accepted long delay is stored as MaxStepDelay, the longest delay a
// saved profile keeps.
func confirmStep(ctx context.Context, step models.ClickStep, p *prompter) (models.ClickStep, error) {
	width, height := screenSize(ctx)
	if step.X >= width || step.Y >= height {
		ok, err := p.confirm(fmt.Sprintf("Coordinates (%d, %d) are outside the %dx%d screen. Keep them?", step.X, step.Y, width, height))
		if err != nil {
			return models.ClickStep{}, err
		}
		if !ok {
			return models.ClickStep{}, errDeclined
		}
	}
	if step.Delay > models.MaxStepDelay {
		ok, err := p.confirm(fmt.Sprintf("A delay of %gs is longer than an hour. Use %gs instead?", step.Delay, models.MaxStepDelay))
		if err != nil {
			return models.ClickStep{}, err
		}
		if !ok {
			return models.ClickStep{}, errDeclined
		}
		step.Delay = models.MaxStepDelay
	}
	return step, nil
}

// screenSizeFunc is replaced in tests.
var screenSizeFunc = func(ctx context.Context) (int, int, error) {
	inj, err := openInjector()
	if err != nil {
		return 0, 0, err
	}
	return inj.ScreenSize(ctx)
}

func screenSize(ctx context.Context) (int, int) {
	if ctx == nil {
		ctx = context.Background()
	}
	w, h, err := screenSizeFunc(ctx)
	if err != nil || w <= 0 || h <= 0 {
		cfg := GetConfig()
		lg := logging.Component("cli")
		lg.Debug().Err(err).Msg("screen size unavailable, using configured size")
		return cfg.Injector.ScreenWidth, cfg.Injector.ScreenHeight
	}
	return w, h
}

func parseStepIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid step number %q (steps start at 1)", arg)
	}
	return n - 1, nil
}

func stepRows(steps []models.ClickStep) [][]string {
	rows := make([][]string, 0, len(steps))
	for i, s := range steps {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(s.Button),
			strconv.Itoa(s.X),
			strconv.Itoa(s.Y),
			formatYesNo(s.Double),
			formatSeconds(s.Delay),
		})
	}
	return rows
}
