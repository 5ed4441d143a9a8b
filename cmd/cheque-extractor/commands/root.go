package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/cheque-extractor/internal/domain"
	"github.com/spherical/cheque-extractor/internal/ui"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "cheque-extractor",
	Short: "Extract scanned cheques into a CSV ledger",
	Long: `cheque-extractor renders the first page of every PDF in a directory, asks a
vision model to read the cheque on it, and appends one row per cheque to a CSV
ledger with a fixed twelve-column layout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init(noColor)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from the configured level and format,
// letting --verbose and --log-format win.
func newLogger(level, format string) *domain.Logger {
	lvl := domain.ParseLogLevel(level)
	if verbose {
		lvl = domain.LogLevelDebug
	}
	if logFormat != "" {
		format = logFormat
	}
	return domain.NewLoggerTo(os.Stdout, lvl, domain.LogFormat(format))
}
