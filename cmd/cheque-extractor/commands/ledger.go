package commands

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/cheque-extractor/internal/domain"
	"github.com/spherical/cheque-extractor/internal/ledger"
	"github.com/spherical/cheque-extractor/internal/ui"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect ledger files",
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show <file.csv|file.xlsx>",
	Short: "Print a ledger as a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerShow,
}

func init() {
	ledgerCmd.AddCommand(ledgerShowCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	path := args[0]

	var (
		header []string
		rows   [][]string
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		all, err := ledger.ReadXLSX(path)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			return domain.ValidationError("Workbook has no ledger rows", nil)
		}
		header = padRow(all[0])
		for _, r := range all[1:] {
			rows = append(rows, padRow(r))
		}
	} else {
		table, err := ledger.ReadCSVFile(path)
		if err != nil {
			return err
		}
		header, rows = table.Header, table.Rows
	}

	ui.Table(header, rows)
	ui.Info("%d row(s) in %s", len(rows), path)
	return nil
}

// padRow extends a worksheet row to the ledger width; trailing empty cells
// are not stored in the workbook.
func padRow(r []string) []string {
	out := make([]string, len(domain.LedgerColumns))
	copy(out, r)
	return out
}
