package batch

import (
	"time"

	"github.com/spherical/cheque-extractor/internal/domain"
	"github.com/spherical/cheque-extractor/internal/journal"
)

// DefaultFailureCeiling is the number of failed documents that halts a run.
const DefaultFailureCeiling = 10

// RunState holds the counters of one run. It is owned by Runner.Run and
// returned as the run summary.
type RunState struct {
	RunID          string
	InputDir       string
	Total          int
	Processed      int
	Succeeded      int
	Failed         int
	Skipped        int
	Rejected       int
	FailureCeiling int
	Halted         bool
	Interrupted    bool
	StartedAt      time.Time
	Duration       time.Duration
	Results        []domain.DocumentResult
}

func newRunState(runID, inputDir string, total, ceiling int) *RunState {
	return &RunState{
		RunID:          runID,
		InputDir:       inputDir,
		Total:          total,
		FailureCeiling: ceiling,
		StartedAt:      time.Now(),
		Results:        make([]domain.DocumentResult, 0, total),
	}
}

// record folds one document result into the counters and reports whether
// the failure ceiling has been reached.
func (s *RunState) record(res domain.DocumentResult) bool {
	s.Results = append(s.Results, res)

	switch res.Outcome {
	case domain.OutcomeCancelled:
		s.Interrupted = true
		return false
	case domain.OutcomeSucceeded:
		s.Succeeded++
	case domain.OutcomeExhausted:
		s.Failed++
	case domain.OutcomeAbandoned:
		s.Rejected++
	case domain.OutcomeNotRasterized:
		s.Skipped++
	}
	s.Processed++

	return s.Failed >= s.FailureCeiling
}

// Remaining is the number of documents never reached.
func (s *RunState) Remaining() int {
	return s.Total - len(s.Results)
}

// Counters converts the state into journal counters.
func (s *RunState) Counters() journal.Counters {
	return journal.Counters{
		Total:     s.Total,
		Processed: s.Processed,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Rejected:  s.Rejected,
		Halted:    s.Halted,
	}
}
