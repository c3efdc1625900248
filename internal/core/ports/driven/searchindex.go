package driven

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// UploadResult reports the outcome of an index upload.
// Index population is not atomic: already-uploaded records are never
// rolled back when a later batch fails.
type UploadResult struct {
	// Uploaded is the number of records the service accepted.
	Uploaded int

	// FailedKeys lists record keys from batches that failed permanently.
	FailedKeys []string
}

// SearchIndex is the managed hybrid vector/keyword search service.
type SearchIndex interface {
	// EnsureIndex creates the index schema if it does not exist.
	// The dimension must match the embedding service.
	EnsureIndex(ctx context.Context, dimension int) error

	// DeleteIndex drops the index. Deleting a missing index is not an error.
	DeleteIndex(ctx context.Context) error

	// Exists reports whether the index is present.
	Exists(ctx context.Context) (bool, error)

	// Upload pushes records in bounded-size batches, splitting
	// oversized batches automatically.
	Upload(ctx context.Context, records []domain.IndexRecord) (*UploadResult, error)

	// Query issues a hybrid search for the text and its embedding,
	// returning results in the service's ranking order, best first.
	Query(ctx context.Context, text string, vector []float32, opts domain.QueryOptions) ([]domain.RetrievalResult, error)

	// DocumentCount returns the number of records in the index.
	DocumentCount(ctx context.Context) (int64, error)
}
