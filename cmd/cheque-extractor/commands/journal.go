package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/cheque-extractor/internal/journal"
	"github.com/spherical/cheque-extractor/internal/ui"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the run journal",
}

var journalShowCmd = &cobra.Command{
	Use:   "show <journal.db> [run-id]",
	Short: "Print a recorded run and its documents (default: the latest run)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runJournalShow,
}

func init() {
	journalCmd.AddCommand(journalShowCmd)
	rootCmd.AddCommand(journalCmd)
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger("warn", "console")

	j, err := journal.OpenExisting(ctx, args[0], logger)
	if err != nil {
		return err
	}
	defer j.Close()

	runID := ""
	if len(args) > 1 {
		runID = args[1]
	} else if runID, err = j.LatestRunID(ctx); err != nil {
		return err
	}

	run, err := j.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	docs, err := j.Documents(ctx, run.ID)
	if err != nil {
		return err
	}

	finished := "-"
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Local().Format(time.RFC3339)
	}

	ui.Section("Run " + run.ID)
	ui.KeyValue([][2]string{
		{"Input", run.InputDir},
		{"Ledger", run.LedgerPath},
		{"Model", run.Model},
		{"Started", run.StartedAt.Local().Format(time.RFC3339)},
		{"Finished", finished},
		{"Succeeded", fmt.Sprintf("%d", run.Succeeded)},
		{"Failed", fmt.Sprintf("%d", run.Failed)},
		{"Skipped", fmt.Sprintf("%d", run.Skipped)},
		{"Rejected", fmt.Sprintf("%d", run.Rejected)},
		{"Halted", fmt.Sprintf("%t", run.Halted)},
	})

	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{fmt.Sprintf("%d", d.Seq), d.Path, string(d.Outcome), fmt.Sprintf("%d", d.Attempts), d.Error})
	}
	ui.Table([]string{"#", "Document", "Outcome", "Attempts", "Error"}, rows)
	return nil
}
