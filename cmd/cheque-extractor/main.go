package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spherical/cheque-extractor/cmd/cheque-extractor/commands"
	"github.com/spherical/cheque-extractor/internal/domain"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a run error to the process status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrFailureCeiling):
		return 2
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
