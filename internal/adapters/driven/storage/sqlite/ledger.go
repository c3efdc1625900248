package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// Ensure Ledger implements the interface.
var _ driven.IngestLedger = (*Ledger)(nil)

// Ledger is a SQLite-backed ingest ledger. Each ingestion run is stored
// as one row with its per-document outcomes alongside, so `docqa ingest
// --history` works across process restarts.
type Ledger struct {
	db   *sql.DB
	path string
}

// NewLedger opens the ledger database in the specified data directory.
// If dataDir is empty, defaults to ~/.docqa/data/ledger.db.
func NewLedger(dataDir string) (*Ledger, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docqa", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ledger.db")

	// WAL mode so a watch loop can record while a status query reads.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	l := &Ledger{
		db:   db,
		path: dbPath,
	}

	if err := l.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// migrate runs all pending migrations.
func (l *Ledger) migrate(fsys embed.FS) error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := l.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := l.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := l.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// RecordRun persists a completed run summary.
func (l *Ledger) RecordRun(ctx context.Context, summary *domain.IngestSummary) error {
	if summary == nil || summary.RunID == "" {
		return domain.ErrInvalidInput
	}

	failuresJSON, err := json.Marshal(summary.Failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}
	if summary.Failures == nil {
		failuresJSON = []byte("[]")
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (run_id, folder, processed, chunks, uploaded, failures, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			folder = excluded.folder,
			processed = excluded.processed,
			chunks = excluded.chunks,
			uploaded = excluded.uploaded,
			failures = excluded.failures,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, summary.RunID, summary.Folder, summary.Processed, summary.Chunks, summary.Uploaded,
		string(failuresJSON), summary.StartedAt, summary.FinishedAt)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	return nil
}

// RecordDocument persists one document's outcome within a run. Documents
// are recorded as they are processed, before the run summary exists.
func (l *Ledger) RecordDocument(ctx context.Context, runID, uri, status, reason string, chunks int) error {
	if runID == "" || uri == "" {
		return domain.ErrInvalidInput
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO ingest_documents (run_id, uri, status, reason, chunks)
		VALUES (?, ?, ?, ?, ?)
	`, runID, uri, status, reason, chunks)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}

	return nil
}

// LastRun returns the most recent run summary.
func (l *Ledger) LastRun(ctx context.Context) (*domain.IngestSummary, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT run_id, folder, processed, chunks, uploaded, failures, started_at, finished_at
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT 1
	`)

	summary, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return summary, nil
}

// Runs returns up to limit recent run summaries, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]domain.IngestSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, folder, processed, chunks, uploaded, failures, started_at, finished_at
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var summaries []domain.IngestSummary
	for rows.Next() {
		summary, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return summaries, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.IngestSummary, error) {
	var summary domain.IngestSummary
	var failuresJSON string

	if err := s.Scan(&summary.RunID, &summary.Folder, &summary.Processed, &summary.Chunks,
		&summary.Uploaded, &failuresJSON, &summary.StartedAt, &summary.FinishedAt); err != nil {
		return nil, err
	}

	if failuresJSON != "" && failuresJSON != "[]" {
		if err := json.Unmarshal([]byte(failuresJSON), &summary.Failures); err != nil {
			return nil, fmt.Errorf("unmarshalling failures: %w", err)
		}
	}

	return &summary, nil
}
