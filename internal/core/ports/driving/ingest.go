package driving

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// IngestPipeline runs the offline ingestion path:
// load, chunk, embed, upload.
type IngestPipeline interface {
	// Run ingests the folder and returns the run summary.
	// Per-document failures are aggregated in the summary; the error
	// is non-nil only for unrecoverable conditions (missing folder,
	// index schema failure).
	Run(ctx context.Context, opts domain.IngestOptions) (*domain.IngestSummary, error)
}

// IngestWatcher keeps a folder continuously ingested.
type IngestWatcher interface {
	// Watch ingests the folder once, then re-ingests documents as they
	// change, calling onRun after each completed pass. It blocks until
	// the context is cancelled.
	Watch(ctx context.Context, opts domain.IngestOptions, onRun func(*domain.IngestSummary)) error
}
