package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/cheque-extractor/internal/domain"
)

func openTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(context.Background(), path, domain.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func TestJournal_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	j, _ := openTestJournal(t)

	runID, err := j.StartRun(ctx, RunInfo{InputDir: "scans", LedgerPath: "cheque_data.csv", Model: "gpt-4-turbo"})
	require.NoError(t, err)
	_, err = uuid.Parse(runID)
	require.NoError(t, err)

	require.NoError(t, j.RecordDocument(ctx, runID, 1, domain.DocumentResult{
		Document: domain.NewDocument("scans/a.pdf"),
		Outcome:  domain.OutcomeSucceeded,
		Attempts: 1,
	}))
	require.NoError(t, j.RecordDocument(ctx, runID, 2, domain.DocumentResult{
		Document: domain.NewDocument("scans/b.pdf"),
		Outcome:  domain.OutcomeExhausted,
		Attempts: 3,
		Err:      errors.New("API returned status 429"),
	}))

	run, err := j.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Nil(t, run.FinishedAt)
	assert.Equal(t, "scans", run.InputDir)

	require.NoError(t, j.FinishRun(ctx, runID, Counters{Total: 2, Processed: 2, Succeeded: 1, Failed: 1}))

	run, err = j.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 1, run.Failed)
	assert.False(t, run.Halted)

	docs, err := j.Documents(ctx, runID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, domain.OutcomeSucceeded, docs[0].Outcome)
	assert.Empty(t, docs[0].Error)
	assert.Equal(t, 3, docs[1].Attempts)
	assert.Contains(t, docs[1].Error, "429")
}

func TestJournal_ReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	j, path := openTestJournal(t)

	runID, err := j.StartRun(ctx, RunInfo{InputDir: "scans"})
	require.NoError(t, err)
	require.NoError(t, j.FinishRun(ctx, runID, Counters{Halted: true}))
	require.NoError(t, j.Close())

	// migrations are not reapplied
	j2, err := Open(ctx, path, domain.NopLogger())
	require.NoError(t, err)
	defer j2.Close()

	run, err := j2.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.True(t, run.Halted)
}

func TestJournal_StartRunKeepsGivenID(t *testing.T) {
	j, _ := openTestJournal(t)

	id := uuid.NewString()
	got, err := j.StartRun(context.Background(), RunInfo{ID: id, InputDir: "scans"})
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestJournal_LatestRunID(t *testing.T) {
	ctx := context.Background()
	j, _ := openTestJournal(t)

	_, err := j.LatestRunID(ctx)
	assert.Error(t, err)

	_, err = j.StartRun(ctx, RunInfo{InputDir: "first"})
	require.NoError(t, err)
	second, err := j.StartRun(ctx, RunInfo{InputDir: "second"})
	require.NoError(t, err)

	latest, err := j.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, latest)
}

func TestJournal_FinishUnknownRun(t *testing.T) {
	j, _ := openTestJournal(t)

	err := j.FinishRun(context.Background(), uuid.NewString(), Counters{})
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestJournal_DocumentNeedsRun(t *testing.T) {
	j, _ := openTestJournal(t)

	err := j.RecordDocument(context.Background(), "missing", 1, domain.DocumentResult{
		Document: domain.NewDocument("a.pdf"),
		Outcome:  domain.OutcomeSucceeded,
	})
	assert.Error(t, err)
}

func TestOpenExisting_MissingPathCreatesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.db")

	_, err := OpenExisting(context.Background(), path, domain.NopLogger())
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeIO))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no journal file should be created")
}

func TestOpenExisting_ReadsRecordedRuns(t *testing.T) {
	ctx := context.Background()
	j, path := openTestJournal(t)
	runID, err := j.StartRun(ctx, RunInfo{InputDir: "scans"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	reopened, err := OpenExisting(ctx, path, domain.NopLogger())
	require.NoError(t, err)
	defer reopened.Close()

	latest, err := reopened.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, runID, latest)
}
