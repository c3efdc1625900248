package driven

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// Connector produces raw documents from a source location.
type Connector interface {
	// Scan walks the source and streams every supported document.
	// Unreadable files are reported on the error channel and skipped;
	// both channels close when the walk finishes.
	Scan(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch streams documents as they are created or modified,
	// until the context is cancelled.
	Watch(ctx context.Context) (<-chan domain.RawDocument, error)

	// Close releases watcher resources.
	Close() error
}

// ConnectorFactory builds a connector for a source folder.
type ConnectorFactory func(folder string) (Connector, error)

// PostProcessor transforms a normalised document, typically producing
// chunks. Processors receive the chunks emitted by earlier stages.
type PostProcessor interface {
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// ProcessorFactory builds the post-processor for one ingestion run.
// Non-zero chunkSize and chunkOverlap override the configured
// defaults; zero keeps them.
type ProcessorFactory func(chunkSize, chunkOverlap int) PostProcessor
