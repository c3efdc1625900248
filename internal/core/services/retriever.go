package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/logger"
	"github.com/custodia-labs/docqa-cli/internal/retry"
)

// Retriever answers "which chunks are relevant to this question".
// It embeds the question, issues a hybrid query against the search
// index and returns results in the service's ranking order.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.SearchIndex
	policy   retry.Policy
	opts     domain.QueryOptions
}

// NewRetriever creates a retriever with the given query defaults.
func NewRetriever(
	embedder driven.EmbeddingService,
	index driven.SearchIndex,
	policy retry.Policy,
	opts domain.QueryOptions,
) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		policy:   policy,
		opts:     opts,
	}
}

// Retrieve returns the top chunks for the question, best first.
// Rate-limited and transient failures are retried per the policy;
// exhaustion surfaces domain.ErrRetrievalUnavailable so the caller
// can degrade instead of crashing.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.RetrievalResult, error) {
	if question == "" {
		return nil, domain.ErrInvalidInput
	}

	var vector []float32
	err := r.policy.Do(ctx, "embed question", func(ctx context.Context) error {
		var embedErr error
		vector, embedErr = r.embedder.Embed(ctx, question)
		return embedErr
	})
	if err != nil {
		if retry.Exhausted(err) {
			return nil, fmt.Errorf("%w: embedding: %w", domain.ErrRetrievalUnavailable, err)
		}
		return nil, fmt.Errorf("embed question: %w", err)
	}

	var results []domain.RetrievalResult
	err = r.policy.Do(ctx, "search query", func(ctx context.Context) error {
		var queryErr error
		results, queryErr = r.index.Query(ctx, question, vector, r.opts)
		return queryErr
	})
	if err != nil {
		if retry.Exhausted(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, err)
		}
		return nil, fmt.Errorf("search query: %w", err)
	}

	logger.Debug("Retrieved %d chunks for question", len(results))
	return results, nil
}
