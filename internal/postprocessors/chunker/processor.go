// Package chunker splits document content into overlapping chunks,
// preferring paragraph and sentence boundaries near the target size.
package chunker

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// boundaryWindowDivisor sets how far back from the target size the
// chunker searches for a natural break: chunkSize / divisor characters.
const boundaryWindowDivisor = 5

// Processor splits document content into overlapping chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must leave room for the chunk to advance
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document content into chunks.
//
// Chunks cover the content with no gaps: each chunk after the first
// starts exactly overlap characters before the previous chunk's end,
// so the last overlap characters of chunk i equal the first overlap
// characters of chunk i+1. Chunk ends prefer a paragraph break, then
// a sentence end, then a word boundary within the search window;
// a document shorter than the chunk size yields exactly one chunk.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	content := doc.Content
	contentLen := len(content)
	sourceFile := filepath.Base(doc.URI)
	pageOffsets := pageOffsetsFromMetadata(doc.Metadata)

	estimated := contentLen/(p.chunkSize-p.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	position := 0

	for start < contentLen {
		end := p.cutPoint(content, start)

		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Content:    content[start:end],
			Position:   position,
			Page:       pageForOffset(pageOffsets, start),
			Start:      start,
			End:        end,
			SourceFile: sourceFile,
			Title:      doc.Title,
		})
		position++

		if end == contentLen {
			break
		}
		start = end - p.overlap
	}

	return chunks, nil
}

// cutPoint finds where the chunk starting at start should end.
// The ideal end is start+chunkSize; within the window before it, the
// last paragraph break wins over the last sentence end, which wins
// over the last word boundary. A boundary is only accepted when it
// still advances past the overlap region.
func (p *Processor) cutPoint(content string, start int) int {
	ideal := start + p.chunkSize
	if ideal >= len(content) {
		return len(content)
	}

	window := p.chunkSize / boundaryWindowDivisor
	if window < 1 {
		window = 1
	}
	searchStart := ideal - window

	// The next chunk starts at end-overlap; end must clear that plus
	// a margin of one character or the chunker would stall.
	minEnd := start + p.overlap + 1
	if searchStart < minEnd {
		searchStart = minEnd
	}
	if searchStart >= ideal {
		return ideal
	}

	region := content[searchStart:ideal]

	if idx := strings.LastIndex(region, "\n\n"); idx >= 0 {
		return searchStart + idx + 2
	}
	if idx := lastSentenceEnd(region); idx >= 0 {
		return searchStart + idx + 1
	}
	if idx := strings.LastIndexAny(region, " \t\n"); idx >= 0 {
		return searchStart + idx + 1
	}

	// No boundary in the window; cut at the target size.
	return ideal
}

// lastSentenceEnd returns the index of the final sentence-terminating
// punctuation in s that is followed by whitespace, or -1.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		c := s[i]
		if c != ' ' && c != '\n' && c != '\t' {
			continue
		}
		prev := s[i-1]
		if prev == '.' || prev == '!' || prev == '?' {
			return i - 1
		}
	}
	return -1
}

// pageOffsetsFromMetadata reads the page start offsets recorded by
// page-aware normalisers. Nil when the document has no page structure.
func pageOffsetsFromMetadata(metadata map[string]any) []int {
	if metadata == nil {
		return nil
	}
	switch v := metadata["page_offsets"].(type) {
	case []int:
		return v
	case []any:
		offsets := make([]int, 0, len(v))
		for _, o := range v {
			if n, ok := o.(int); ok {
				offsets = append(offsets, n)
			}
		}
		return offsets
	default:
		return nil
	}
}

// pageForOffset maps a character offset to its 1-based page number.
func pageForOffset(offsets []int, pos int) int {
	if len(offsets) == 0 {
		return 0
	}
	page := 1
	for i, off := range offsets {
		if pos >= off {
			page = i + 1
		}
	}
	return page
}
