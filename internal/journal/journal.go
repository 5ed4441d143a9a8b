// Package journal keeps an optional SQLite audit trail of batch runs.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical/cheque-extractor/internal/domain"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Journal records runs and per-document outcomes. It is write-only from the
// pipeline's point of view; nothing resumes from it.
type Journal struct {
	db     *sql.DB
	logger *domain.Logger
}

// RunInfo describes a run when it starts. An empty ID gets a fresh uuid.
type RunInfo struct {
	ID         string
	InputDir   string
	LedgerPath string
	Model      string
}

// Counters are the totals written when a run finishes.
type Counters struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	Rejected  int
	Halted    bool
}

// Run is a journal row read back.
type Run struct {
	ID         string
	InputDir   string
	LedgerPath string
	Model      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Counters
}

// DocumentEntry is a documents row read back.
type DocumentEntry struct {
	Seq      int
	Path     string
	Outcome  domain.Outcome
	Attempts int
	Error    string
}

// Open opens (creating if needed) the journal at path and applies migrations.
func Open(ctx context.Context, path string, logger *domain.Logger) (*Journal, error) {
	if logger == nil {
		logger = domain.DefaultLogger
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, domain.IOError("open journal", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, logger: logger.WithPrefix("journal")}
	if err := j.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// OpenExisting is Open for readers: a missing path is an error instead of a
// new empty journal.
func OpenExisting(ctx context.Context, path string, logger *domain.Logger) (*Journal, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("journal not found: %s", path), err)
	}
	if info.IsDir() {
		return nil, domain.IOError(fmt.Sprintf("journal is a directory: %s", path), nil)
	}
	return Open(ctx, path, logger)
}

func (j *Journal) migrate(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version TEXT UNIQUE NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`); err != nil {
		return domain.IOError("ensure schema_migrations table", err)
	}

	applied := make(map[string]bool)
	rows, err := j.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return domain.IOError("query schema_migrations", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return domain.IOError("scan schema_migrations", err)
		}
		applied[v] = true
	}
	rows.Close()

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return domain.IOError("list migrations", err)
	}
	sort.Strings(names)

	for _, name := range names {
		if applied[name] {
			continue
		}
		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			return domain.IOError(fmt.Sprintf("read migration %s", name), err)
		}

		tx, err := j.db.BeginTx(ctx, nil)
		if err != nil {
			return domain.IOError("begin migration", err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return domain.IOError(fmt.Sprintf("run migration %s", name), err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, name); err != nil {
			tx.Rollback()
			return domain.IOError(fmt.Sprintf("record migration %s", name), err)
		}
		if err := tx.Commit(); err != nil {
			return domain.IOError(fmt.Sprintf("commit migration %s", name), err)
		}
		j.logger.Debug("Applied migration %s", name)
	}
	return nil
}

// StartRun inserts a run row and returns its id.
func (j *Journal) StartRun(ctx context.Context, info RunInfo) (string, error) {
	id := info.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_dir, ledger_path, model, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, info.InputDir, info.LedgerPath, info.Model, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return "", domain.IOError("insert run", err)
	}
	return id, nil
}

// RecordDocument appends the outcome of one document to a run.
func (j *Journal) RecordDocument(ctx context.Context, runID string, seq int, res domain.DocumentResult) error {
	var errText sql.NullString
	if res.Err != nil {
		errText = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO documents (run_id, seq, path, outcome, attempts, error, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, seq, res.Document.Path, string(res.Outcome), res.Attempts, errText, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return domain.IOError("insert document", err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (j *Journal) FinishRun(ctx context.Context, runID string, c Counters) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, processed = ?, succeeded = ?, failed = ?, skipped = ?, rejected = ?, halted = ?
		 WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), c.Total, c.Processed, c.Succeeded, c.Failed, c.Skipped, c.Rejected, c.Halted, runID)
	if err != nil {
		return domain.IOError("update run", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ValidationError(fmt.Sprintf("unknown run %s", runID), nil)
	}
	return nil
}

// GetRun reads a run back.
func (j *Journal) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
		halted   int
	)
	err := j.db.QueryRowContext(ctx,
		`SELECT id, input_dir, ledger_path, model, started_at, finished_at, total, processed, succeeded, failed, skipped, rejected, halted
		 FROM runs WHERE id = ?`, runID).
		Scan(&r.ID, &r.InputDir, &r.LedgerPath, &r.Model, &started, &finished,
			&r.Total, &r.Processed, &r.Succeeded, &r.Failed, &r.Skipped, &r.Rejected, &halted)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("get run %s", runID), err)
	}

	r.Halted = halted != 0
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, domain.IOError("parse started_at", err)
	}
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, domain.IOError("parse finished_at", err)
		}
		r.FinishedAt = &t
	}
	return &r, nil
}

// LatestRunID returns the id of the most recently started run.
func (j *Journal) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := j.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if err != nil {
		return "", domain.IOError("find latest run", err)
	}
	return id, nil
}

// Documents lists the documents recorded for a run in processing order.
func (j *Journal) Documents(ctx context.Context, runID string) ([]DocumentEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, path, outcome, attempts, error FROM documents WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, domain.IOError("query documents", err)
	}
	defer rows.Close()

	var out []DocumentEntry
	for rows.Next() {
		var (
			d       DocumentEntry
			outcome string
			errText sql.NullString
		)
		if err := rows.Scan(&d.Seq, &d.Path, &outcome, &d.Attempts, &errText); err != nil {
			return nil, domain.IOError("scan document", err)
		}
		d.Outcome = domain.Outcome(outcome)
		d.Error = errText.String
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IOError("iterate documents", err)
	}
	return out, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
