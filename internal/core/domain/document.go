package domain

import "time"

// Document represents a loaded source document with metadata.
// It is the canonical representation after normalisation and is
// discarded once its chunks have been produced.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// Pages is the number of pages extracted, where the format has pages.
	// Zero for formats without page structure.
	Pages int

	// Metadata contains arbitrary key-value pairs from extraction.
	Metadata map[string]any

	// LoadedAt is when the document was read from its source.
	LoadedAt time.Time
}

// Chunk is the unit of retrieval, cut from a document.
// Consecutive chunks from the same document share the configured
// overlap region.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Page is the page the chunk starts on, when known. Zero otherwise.
	Page int

	// Start and End are character offsets into the document content.
	Start int
	End   int

	// SourceFile is the base name of the originating file.
	SourceFile string

	// Title is the parent document title.
	Title string

	// Embedding is the vector representation. Populated by the
	// embedding step, after which the chunk becomes an index record.
	Embedding []float32
}
