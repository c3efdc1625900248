package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(500), WithOverlap(100))
		if p.chunkSize != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.chunkSize)
		}
		if p.overlap != 100 {
			t.Errorf("expected overlap 100, got %d", p.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcess_EmptyContent(t *testing.T) {
	p := New()
	doc := &domain.Document{ID: "doc", Content: ""}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestProcess_ShortDocumentYieldsSingleChunk(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	doc := &domain.Document{
		ID:      "doc",
		URI:     "/docs/policy.txt",
		Title:   "Policy",
		Content: "This is a small piece of content.",
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for short content, got %d", len(chunks))
	}

	c := chunks[0]
	if c.Content != doc.Content {
		t.Errorf("expected chunk to equal full text, got %q", c.Content)
	}
	if c.Position != 0 {
		t.Errorf("expected position 0, got %d", c.Position)
	}
	if c.SourceFile != "policy.txt" {
		t.Errorf("expected source file policy.txt, got %q", c.SourceFile)
	}
	if c.Title != "Policy" {
		t.Errorf("expected title Policy, got %q", c.Title)
	}
}

func TestProcess_ChunkSizeInvariant(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	doc := &domain.Document{
		ID:      "doc",
		Content: strings.Repeat("word and more text. ", 100),
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if len(c.Content) > 100 {
			t.Errorf("chunk %d exceeds chunk size: %d chars", i, len(c.Content))
		}
	}
}

func TestProcess_OverlapProperty(t *testing.T) {
	const overlap = 20
	p := New(WithChunkSize(100), WithOverlap(overlap))
	doc := &domain.Document{
		ID:      "doc",
		Content: strings.Repeat("sentences keep flowing here. ", 50),
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 0; i < len(chunks)-1; i++ {
		cur, next := chunks[i].Content, chunks[i+1].Content
		tail := cur[len(cur)-overlap:]
		head := next[:overlap]
		if tail != head {
			t.Errorf("chunk %d/%d overlap mismatch:\n tail %q\n head %q", i, i+1, tail, head)
		}
	}
}

func TestProcess_RoundTrip(t *testing.T) {
	const overlap = 30
	p := New(WithChunkSize(120), WithOverlap(overlap))

	content := strings.Repeat("One sentence here. Another follows!\n\nA new paragraph begins now. ", 30)
	doc := &domain.Document{ID: "doc", Content: content}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c.Content)
			continue
		}
		sb.WriteString(c.Content[overlap:])
	}
	if sb.String() != content {
		t.Error("concatenating chunks minus overlap should reconstruct the original text")
	}
}

func TestProcess_NoGaps(t *testing.T) {
	p := New(WithChunkSize(80), WithOverlap(10))
	content := strings.Repeat("continuous text without much structure ", 40)
	doc := &domain.Document{ID: "doc", Content: content}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if chunks[0].Start != 0 {
		t.Errorf("first chunk should start at 0, got %d", chunks[0].Start)
	}
	if chunks[len(chunks)-1].End != len(content) {
		t.Errorf("last chunk should end at %d, got %d", len(content), chunks[len(chunks)-1].End)
	}
	for i := 0; i < len(chunks)-1; i++ {
		if chunks[i+1].Start >= chunks[i].End {
			t.Errorf("gap between chunk %d (end %d) and chunk %d (start %d)",
				i, chunks[i].End, i+1, chunks[i+1].Start)
		}
	}
}

func TestProcess_PrefersParagraphBreak(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(10))

	// A paragraph break sits inside the search window before the
	// 100-char target.
	content := strings.Repeat("a", 85) + "\n\n" + strings.Repeat("b", 100)
	doc := &domain.Document{ID: "doc", Content: content}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, "\n\n") {
		t.Errorf("expected first chunk to end at the paragraph break, got %q", chunks[0].Content[len(chunks[0].Content)-5:])
	}
}

func TestProcess_PrefersSentenceBreakOverWord(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(10))

	content := strings.Repeat("c", 80) + ". " + strings.Repeat("word ", 40)
	doc := &domain.Document{ID: "doc", Content: content}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(chunks[0].Content, ".") {
		t.Errorf("expected first chunk to end at the sentence boundary, got %q", chunks[0].Content)
	}
}

func TestProcess_NeverSplitsMidWordWhenBoundaryExists(t *testing.T) {
	p := New(WithChunkSize(50), WithOverlap(5))
	content := strings.Repeat("alpha beta gamma delta ", 20)
	doc := &domain.Document{ID: "doc", Content: content}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks[:len(chunks)-1] {
		last := c.Content[len(c.Content)-1]
		if last != ' ' && last != '\n' {
			t.Errorf("chunk %d ends mid-word: %q", i, c.Content)
		}
	}
}

func TestProcess_ChunkCountMatchesStride(t *testing.T) {
	// Mirrors ingesting a ~3-page plain-text document with the default
	// 1000/200 configuration: count should be ceil(len/(size-overlap)) ±1.
	p := New(WithChunkSize(1000), WithOverlap(200))

	content := strings.Repeat("Enterprise documents hold many policies. ", 150) // ~6150 chars
	doc := &domain.Document{ID: "doc", Content: content}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stride := 1000 - 200
	expected := (len(content) + stride - 1) / stride
	if diff := len(chunks) - expected; diff < -1 || diff > 1 {
		t.Errorf("expected about %d chunks, got %d", expected, len(chunks))
	}
}

func TestProcess_PageAssignment(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(10))

	content := strings.Repeat("p1 text here. ", 10) + strings.Repeat("p2 text here. ", 10)
	doc := &domain.Document{
		ID:      "doc",
		Content: content,
		Pages:   2,
		Metadata: map[string]any{
			"page_offsets": []int{0, 140},
		},
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks[0].Page != 1 {
		t.Errorf("expected first chunk on page 1, got %d", chunks[0].Page)
	}
	last := chunks[len(chunks)-1]
	if last.Page != 2 {
		t.Errorf("expected last chunk on page 2, got %d", last.Page)
	}
}

func TestProcess_PositionsAreSequential(t *testing.T) {
	p := New(WithChunkSize(60), WithOverlap(10))
	doc := &domain.Document{ID: "doc", Content: strings.Repeat("more text follows here ", 30)}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if c.Position != i {
			t.Errorf("chunk %d has position %d", i, c.Position)
		}
		if c.DocumentID != "doc" {
			t.Errorf("chunk %d has document ID %q", i, c.DocumentID)
		}
	}
}
