package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/cheque-extractor/internal/batch"
	"github.com/spherical/cheque-extractor/internal/config"
	"github.com/spherical/cheque-extractor/internal/domain"
	"github.com/spherical/cheque-extractor/internal/journal"
	"github.com/spherical/cheque-extractor/internal/ledger"
	"github.com/spherical/cheque-extractor/internal/llm"
	"github.com/spherical/cheque-extractor/internal/pdf"
	"github.com/spherical/cheque-extractor/internal/ui"
)

var (
	runOutputPath  string
	runXLSXPath    string
	runJournalPath string
	runNoProgress  bool
)

var runCmd = &cobra.Command{
	Use:   "run [input-dir]",
	Short: "Process every PDF in a directory",
	Long: `Process every PDF in the input directory (default: scans/) in name order.
The ledger is recreated at the start of each run and flushed after every row.
The run stops early once 10 documents have exhausted their retries.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	runCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "CSV ledger path (default: cheque_data.csv)")
	runCmd.Flags().StringVar(&runXLSXPath, "xlsx", "", "also write the ledger to this XLSX workbook")
	runCmd.Flags().StringVar(&runJournalPath, "journal", "", "record the run in this SQLite journal")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyRunFlags(cfg, args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n\nReceived interrupt signal, stopping after the current document...")
			cancel()
		case <-ctx.Done():
		}
	}()

	converter, err := pdf.NewConverter(cfg.Rasterizer.DPI, cfg.Rasterizer.Quality, logger)
	if err != nil {
		return err
	}

	client := llm.NewClient(llm.Config{
		APIKey:    cfg.APIKey,
		Endpoint:  cfg.LLM.Endpoint,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	}, logger)

	policy := llm.NewRetryPolicy(llm.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		RateLimitDelay: cfg.Retry.RateLimitDelay,
		OverloadDelay:  cfg.Retry.OverloadDelay,
	}, llm.SleepContext, logger)

	sink, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	opts := batch.Options{
		FailureCeiling: cfg.Batch.FailureCeiling,
		Extension:      cfg.Input.Extension,
		Logger:         logger,
		LedgerPath:     cfg.Ledger.CSVPath,
		Model:          cfg.LLM.Model,
	}
	if !runNoProgress {
		opts.Progress = ui.NewProgressBar()
	}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(ctx, cfg.Journal.Path, logger)
		if err != nil {
			return err
		}
		defer j.Close()
		opts.Journal = j
	}

	ui.Section("Cheque Extraction")
	ui.Info("Input directory: %s", cfg.Input.Dir)
	ui.Info("Ledger: %s", cfg.Ledger.CSVPath)
	if cfg.Ledger.XLSXPath != "" {
		ui.Info("Workbook: %s", cfg.Ledger.XLSXPath)
	}
	ui.Info("Model: %s", cfg.LLM.Model)

	runner := batch.NewRunner(converter, client, policy, sink, opts)
	state, runErr := runner.Run(ctx, cfg.Input.Dir)
	if state != nil {
		printSummary(state)
	}

	switch {
	case runErr == nil:
		ui.Success("Ledger written to %s", cfg.Ledger.CSVPath)
	case errors.Is(runErr, domain.ErrFailureCeiling):
		ui.Error("Too many failures (%d); run halted", state.Failed)
	case errors.Is(runErr, context.Canceled):
		ui.Warning("Run interrupted; the ledger holds every row written so far")
	}
	return runErr
}

func applyRunFlags(cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Input.Dir = args[0]
	}
	if runOutputPath != "" {
		cfg.Ledger.CSVPath = runOutputPath
	}
	if runXLSXPath != "" {
		cfg.Ledger.XLSXPath = runXLSXPath
	}
	if runJournalPath != "" {
		cfg.Journal.Path = runJournalPath
	}
	if logFormat != "" {
		cfg.Observability.LogFormat = logFormat
	}
}

// openLedger truncates the CSV ledger and, when configured, adds the XLSX mirror.
func openLedger(cfg *config.Config) (domain.LedgerWriter, error) {
	csvw, err := ledger.CreateCSV(cfg.Ledger.CSVPath)
	if err != nil {
		return nil, err
	}
	if cfg.Ledger.XLSXPath == "" {
		return csvw, nil
	}

	xlsx, err := ledger.NewXLSXWriter(cfg.Ledger.XLSXPath)
	if err != nil {
		csvw.Close()
		return nil, err
	}
	return ledger.Tee(csvw, xlsx), nil
}

func printSummary(state *batch.RunState) {
	ui.Section("Run Summary")
	pairs := [][2]string{
		{"Run ID", state.RunID},
		{"Documents", fmt.Sprintf("%d", state.Total)},
		{"Processed", fmt.Sprintf("%d", state.Processed)},
		{"Succeeded", fmt.Sprintf("%d", state.Succeeded)},
		{"Failed", fmt.Sprintf("%d / %d", state.Failed, state.FailureCeiling)},
		{"Skipped (no image)", fmt.Sprintf("%d", state.Skipped)},
		{"Rejected (bad JSON)", fmt.Sprintf("%d", state.Rejected)},
		{"Duration", state.Duration.Round(time.Second).String()},
	}
	if remaining := state.Remaining(); remaining > 0 {
		pairs = append(pairs, [2]string{"Not processed", fmt.Sprintf("%d", remaining)})
	}
	ui.KeyValue(pairs)
}
