package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/autoclick/internal/db"
	"github.com/opencode-ai/autoclick/internal/models"
)

var (
	historyLimit       int
	historyEventsLimit int
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	historyShowCmd.Flags().IntVar(&historyEventsLimit, "limit", 200, "number of events to show")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	Long:  "List runs recorded in the journal, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := requireJournal(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		runs, err := db.NewRunRepository(database).ListRecent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if IsJSONOutput() {
			return WriteOutput(os.Stdout, runs)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				r.ID,
				string(r.Mode),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				formatDuration(r.Duration()),
				strconv.Itoa(r.Clicks),
				formatOutcome(r.Outcome),
			})
		}
		return writeTable(os.Stdout, []string{"RUN", "MODE", "STARTED", "DURATION", "CLICKS", "OUTCOME"}, rows)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show the events of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := requireJournal(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		run, err := db.NewRunRepository(database).Get(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, db.ErrRunNotFound) {
				return fmt.Errorf("run %s not found", args[0])
			}
			return err
		}
		events, err := db.NewEventRepository(database).ListByRun(cmd.Context(), run.ID, historyEventsLimit)
		if err != nil {
			return err
		}
		if IsJSONOutput() {
			return WriteOutput(os.Stdout, struct {
				Run    *models.Run        `json:"run"`
				Events []*models.RunEvent `json:"events"`
			}{run, events})
		}

		fmt.Printf("Run %s (%s) %s, %d clicks\n", run.ID, run.Mode, formatOutcome(run.Outcome), run.Clicks)
		rows := make([][]string, 0, len(events))
		for _, ev := range events {
			rows = append(rows, []string{ev.Timestamp.Local().Format(time.TimeOnly), ev.Kind, ev.Message})
		}
		return writeTable(os.Stdout, []string{"TIME", "KIND", "MESSAGE"}, rows)
	},
}

func requireJournal(cmd *cobra.Command) (*db.DB, error) {
	database, err := openJournal(cmd.Context())
	if err != nil {
		return nil, err
	}
	if database == nil {
		return nil, &PreflightError{
			Message: "the run journal is disabled",
			Hint:    "Set journal.enabled: true in config.yaml or AUTOCLICK_JOURNAL_ENABLED=true",
		}
	}
	return database, nil
}
