// Package batch drives input documents through rasterization, extraction and
// the ledger, one document at a time.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/cheque-extractor/internal/domain"
	"github.com/spherical/cheque-extractor/internal/journal"
	"github.com/spherical/cheque-extractor/internal/llm"
	"github.com/spherical/cheque-extractor/internal/ui"
)

// Journal records runs for auditing. *journal.Journal satisfies it.
type Journal interface {
	StartRun(ctx context.Context, info journal.RunInfo) (string, error)
	RecordDocument(ctx context.Context, runID string, seq int, res domain.DocumentResult) error
	FinishRun(ctx context.Context, runID string, c journal.Counters) error
}

// DecodeFunc turns model content into a record.
type DecodeFunc func(content string) (domain.ChequeRecord, error)

// Options tunes a Runner. Zero values fall back to defaults.
type Options struct {
	FailureCeiling int
	Extension      string
	Progress       ui.Progress
	Logger         *domain.Logger
	Decode         DecodeFunc
	Journal        Journal

	// LedgerPath and Model are only written to the journal.
	LedgerPath string
	Model      string
}

// Runner orchestrates a batch run
type Runner struct {
	rasterizer     domain.Rasterizer
	extractor      domain.Extractor
	policy         *llm.RetryPolicy
	ledger         domain.LedgerWriter
	progress       ui.Progress
	logger         *domain.Logger
	decode         DecodeFunc
	journal        Journal
	failureCeiling int
	extension      string
	ledgerPath     string
	model          string
}

// NewRunner creates a new batch runner
func NewRunner(rasterizer domain.Rasterizer, extractor domain.Extractor, policy *llm.RetryPolicy, ledger domain.LedgerWriter, opts Options) *Runner {
	if opts.FailureCeiling <= 0 {
		opts.FailureCeiling = DefaultFailureCeiling
	}
	if opts.Extension == "" {
		opts.Extension = ".pdf"
	}
	if opts.Progress == nil {
		opts.Progress = ui.NopProgress{}
	}
	if opts.Logger == nil {
		opts.Logger = domain.DefaultLogger
	}
	logger := opts.Logger.WithPrefix("batch")
	if opts.Decode == nil {
		decodeLogger := opts.Logger.WithPrefix("decode")
		opts.Decode = func(content string) (domain.ChequeRecord, error) {
			return llm.DecodeRecord(content, decodeLogger)
		}
	}

	return &Runner{
		rasterizer:     rasterizer,
		extractor:      extractor,
		policy:         policy,
		ledger:         ledger,
		progress:       opts.Progress,
		logger:         logger,
		decode:         opts.Decode,
		journal:        opts.Journal,
		failureCeiling: opts.FailureCeiling,
		extension:      strings.ToLower(opts.Extension),
		ledgerPath:     opts.LedgerPath,
		model:          opts.Model,
	}
}

// Run processes every matching document in inputDir in directory order.
//
// An unreadable directory or a ledger write failure is returned as an error.
// Per-document failures are only counted. When the failure count reaches the
// ceiling the run stops and the error matches domain.ErrFailureCeiling. A
// cancelled ctx stops the run between documents and returns ctx.Err(). The
// state is returned in every case once the directory has been listed.
func (r *Runner) Run(ctx context.Context, inputDir string) (*RunState, error) {
	docs, err := r.listDocuments(inputDir)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	state := newRunState(runID, inputDir, len(docs), r.failureCeiling)
	logger := r.logger.WithField("run_id", runID)

	if err := r.ledger.WriteHeader(); err != nil {
		return state, err
	}

	jr := r.startJournal(ctx, logger, state)
	defer func() {
		state.Duration = time.Since(state.StartedAt)
		finishJournal(ctx, jr, logger, state)
	}()

	logger.Info("Found %d PDF(s) in %s", len(docs), inputDir)

	r.progress.Start(len(docs))
	defer r.progress.Finish()

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			state.Interrupted = true
			logger.Warn("Run interrupted before %s; %d document(s) not processed", doc.Name, state.Remaining())
			return state, err
		}

		seq := i + 1
		r.progress.Advance(seq, doc.Name)
		logger.Info("Processing PDF %d of %d: %s", seq, len(docs), doc.Name)

		res := r.processDocument(ctx, logger, doc)
		halt := state.record(res)
		recordJournal(ctx, jr, logger, state, seq, res)

		if res.Outcome == domain.OutcomeLedgerError {
			return state, res.Err
		}
		if res.Outcome == domain.OutcomeCancelled {
			return state, res.Err
		}
		if halt {
			state.Halted = true
			logger.Error("Reached failure ceiling of %d; stopping with %d document(s) unprocessed",
				state.FailureCeiling, state.Remaining())
			return state, fmt.Errorf("%w: %d documents failed", domain.ErrFailureCeiling, state.Failed)
		}
	}

	logger.Info("Run complete: %d succeeded, %d failed, %d skipped, %d rejected",
		state.Succeeded, state.Failed, state.Skipped, state.Rejected)
	return state, nil
}

// processDocument runs one document through rasterize, extract and append.
func (r *Runner) processDocument(ctx context.Context, logger *domain.Logger, doc domain.Document) domain.DocumentResult {
	res := domain.DocumentResult{Document: doc}

	img, err := r.rasterizer.RenderFirstPage(ctx, doc.Path)
	if err != nil {
		if ctx.Err() != nil {
			res.Outcome, res.Err = domain.OutcomeCancelled, err
			return res
		}
		logger.Error("No image generated from %s: %v", doc.Name, err)
		res.Outcome, res.Err = domain.OutcomeNotRasterized, err
		return res
	}

	var rec domain.ChequeRecord
	result := r.policy.Run(ctx, doc.Name, func(ctx context.Context, attempt int) error {
		content, err := r.extractor.Complete(ctx, img)
		if err != nil {
			return err
		}
		rec, err = r.decode(content)
		if err != nil {
			logger.Error("Failed to decode JSON for %s: %v", doc.Name, err)
			logger.Debug("Raw content for %s: %s", doc.Name, content)
		}
		return err
	})
	res.Attempts = result.Attempts
	res.Err = result.Err

	switch result.State {
	case llm.StateSucceeded:
		if err := r.ledger.Append(rec); err != nil {
			logger.Error("Failed to write ledger row for %s: %v", doc.Name, err)
			res.Outcome, res.Err = domain.OutcomeLedgerError, err
			return res
		}
		logger.Info("Successfully processed %s", doc.Name)
		res.Outcome = domain.OutcomeSucceeded
	case llm.StateAbandoned:
		if result.Class == llm.ClassCancelled {
			res.Outcome = domain.OutcomeCancelled
			return res
		}
		res.Outcome = domain.OutcomeAbandoned
	default:
		logger.Error("Failed to process %s after %d attempts: %v", doc.Name, result.Attempts, result.Err)
		res.Outcome = domain.OutcomeExhausted
	}
	return res
}

// listDocuments returns the files in dir whose extension matches,
// sorted by name.
func (r *Runner) listDocuments(dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("Failed to read input directory %s", dir), err)
	}

	docs := make([]domain.Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(e.Name())) != r.extension {
			r.logger.Debug("Skipping %s", e.Name())
			continue
		}
		docs = append(docs, domain.NewDocument(filepath.Join(dir, e.Name())))
	}
	return docs, nil
}

// startJournal returns nil when journaling is off or the run could not be
// recorded; the run itself goes ahead either way.
func (r *Runner) startJournal(ctx context.Context, logger *domain.Logger, state *RunState) Journal {
	if r.journal == nil {
		return nil
	}
	_, err := r.journal.StartRun(ctx, journal.RunInfo{
		ID:         state.RunID,
		InputDir:   state.InputDir,
		LedgerPath: r.ledgerPath,
		Model:      r.model,
	})
	if err != nil {
		logger.Warn("Journal disabled for this run: %v", err)
		return nil
	}
	return r.journal
}

func recordJournal(ctx context.Context, jr Journal, logger *domain.Logger, state *RunState, seq int, res domain.DocumentResult) {
	if jr == nil {
		return
	}
	if err := jr.RecordDocument(context.WithoutCancel(ctx), state.RunID, seq, res); err != nil {
		logger.Warn("Failed to journal %s: %v", res.Document.Name, err)
	}
}

func finishJournal(ctx context.Context, jr Journal, logger *domain.Logger, state *RunState) {
	if jr == nil {
		return
	}
	if err := jr.FinishRun(context.WithoutCancel(ctx), state.RunID, state.Counters()); err != nil {
		logger.Warn("Failed to finish journal run: %v", err)
	}
}
