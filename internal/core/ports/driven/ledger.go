package driven

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// IngestLedger records ingestion runs and per-document outcomes so the
// ingestion history survives process restarts. The index itself lives
// in the external search service; the ledger is local bookkeeping only.
type IngestLedger interface {
	// RecordRun persists a completed run summary.
	RecordRun(ctx context.Context, summary *domain.IngestSummary) error

	// RecordDocument persists one document's outcome within a run.
	// Status is "ok" or "failed"; reason is empty on success.
	RecordDocument(ctx context.Context, runID, uri, status, reason string, chunks int) error

	// LastRun returns the most recent run summary, or
	// domain.ErrNotFound when no run has been recorded.
	LastRun(ctx context.Context) (*domain.IngestSummary, error)

	// Runs returns up to limit recent run summaries, newest first.
	Runs(ctx context.Context, limit int) ([]domain.IngestSummary, error)

	// Close releases resources.
	Close() error
}
