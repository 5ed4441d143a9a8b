package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...commands.Version=...".
var Version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cheque-extractor version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
