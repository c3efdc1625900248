package domain

import "time"

// IndexRecord is the persisted unit in the external search index:
// chunk text, embedding vector and source metadata under a unique key.
// Records are created on ingestion upload and replaced wholesale when
// the index is recreated.
type IndexRecord struct {
	// Key is the unique document key in the search index.
	Key string

	// Content is the chunk text.
	Content string

	// ContentVector is the chunk embedding. Its length must match
	// the dimension the index schema was created with.
	ContentVector []float32

	// Title is the parent document title.
	Title string

	// SourceFile is the base name of the originating file.
	SourceFile string

	// PageNumber is the page the chunk starts on, when known.
	PageNumber int

	// ChunkPosition is the chunk's ordinal position within its document.
	ChunkPosition int

	// CreatedAt is when the record was built for upload.
	CreatedAt time.Time
}

// RecordFromChunk builds an index record from an embedded chunk.
func RecordFromChunk(c Chunk) IndexRecord {
	return IndexRecord{
		Key:           c.ID,
		Content:       c.Content,
		ContentVector: c.Embedding,
		Title:         c.Title,
		SourceFile:    c.SourceFile,
		PageNumber:    c.Page,
		ChunkPosition: c.Position,
		CreatedAt:     time.Now(),
	}
}
