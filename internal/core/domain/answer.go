package domain

import "time"

// Citation references the source chunk an answer statement came from.
type Citation struct {
	// Marker is the citation marker as it appears in the answer,
	// e.g. "[Source 2]".
	Marker string

	// SourceFile is the base name of the cited file.
	SourceFile string

	// Title is the cited document title.
	Title string

	// PageNumber is the cited page, when known.
	PageNumber int
}

// TokenUsage reports token consumption for one generation call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Answer is the full response to a question.
type Answer struct {
	// Question is the question as asked.
	Question string

	// Text is the generated answer. On failure it carries the
	// user-facing message instead.
	Text string

	// Citations are the sources the answer references, in the order
	// they first appear in the answer text.
	Citations []Citation

	// Sources are the retrieved chunks the answer was conditioned on,
	// in ranking order.
	Sources []RetrievalResult

	// RetrievalTime is how long retrieval took.
	RetrievalTime time.Duration

	// GenerationTime is how long the LLM call took.
	GenerationTime time.Duration

	// Usage is the reported token usage. Zero when generation was skipped.
	Usage TokenUsage

	// Failed is true when the answer text is a failure message rather
	// than a generated answer.
	Failed bool

	// FailureKind classifies a failed answer, e.g. "timeout",
	// "retrieval unavailable". Empty on success.
	FailureKind string
}
