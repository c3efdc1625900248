package domain

// QueryOptions configures a retrieval query against the search index.
type QueryOptions struct {
	// TopK is the maximum number of results.
	TopK int

	// MinScore filters results scoring below it. Zero disables the filter.
	MinScore float64

	// Hybrid enables combined keyword + vector search.
	// When false the query is vector-only.
	Hybrid bool

	// SemanticRanking enables the service's built-in reranking pass.
	SemanticRanking bool

	// VectorWeight is the vector share of the hybrid score (0..1).
	// The service applies its own fusion; this is advisory tuning.
	VectorWeight float64
}

// RetrievalResult is a scored chunk returned from a query.
// It is created per query and discarded once the generation
// chain has consumed it.
type RetrievalResult struct {
	// Key is the index record key.
	Key string

	// Content is the chunk text.
	Content string

	// Title is the parent document title.
	Title string

	// SourceFile is the base name of the originating file.
	SourceFile string

	// PageNumber is the page the chunk starts on, when known.
	PageNumber int

	// ChunkPosition is the chunk's position within its document.
	ChunkPosition int

	// Score is the service's relevance score.
	Score float64

	// RerankerScore is the semantic reranking score, when the
	// reranking pass ran. Nil otherwise.
	RerankerScore *float64
}
