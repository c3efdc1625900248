package driven

import "context"

// EmbeddingService generates vector embeddings for text.
// Implementations call a managed inference endpoint; retry policy is
// applied by the caller, not the adapter.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call,
	// returning one vector per input in the same order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// Ping validates the endpoint is reachable and the deployment exists.
	Ping(ctx context.Context) error
}
