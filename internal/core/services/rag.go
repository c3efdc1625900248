package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/logger"
	"github.com/custodia-labs/docqa-cli/internal/metrics"
	"github.com/custodia-labs/docqa-cli/internal/retry"
)

// Ensure RAGChain implements the interface.
var _ driving.AnswerService = (*RAGChain)(nil)

// Failure kinds reported on a failed Answer.
const (
	FailureTimeout    = "timeout"
	FailureRetrieval  = "retrieval unavailable"
	FailureGeneration = "generation unavailable"
	FailureUnexpected = "internal error"
)

// sourceMarker matches [Source N] citations in generated answers.
var sourceMarker = regexp.MustCompile(`\[Source (\d+)\]`)

// RAGOptions tunes the generation chain.
type RAGOptions struct {
	// Temperature and MaxTokens are passed to the LLM.
	Temperature float32
	MaxTokens   int

	// ContextCharBudget caps the assembled context block.
	// Zero means 4x MaxTokens characters.
	ContextCharBudget int

	// RequestTimeout bounds one Ask call end to end.
	// Zero means no deadline beyond the caller's.
	RequestTimeout time.Duration
}

// RAGChain answers questions from indexed documents: retrieve, assemble
// context, generate, extract citations. One invocation per question;
// concurrent questions share only the metrics collector.
type RAGChain struct {
	retriever *Retriever
	llm       driven.LLMService
	prompts   driven.PromptStore
	collector *metrics.Collector
	policy    retry.Policy
	opts      RAGOptions
}

// NewRAGChain creates a generation chain. The collector may be nil when
// metrics are not wanted.
func NewRAGChain(
	retriever *Retriever,
	llm driven.LLMService,
	prompts driven.PromptStore,
	collector *metrics.Collector,
	policy retry.Policy,
	opts RAGOptions,
) *RAGChain {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	if opts.ContextCharBudget <= 0 {
		opts.ContextCharBudget = 4 * opts.MaxTokens
	}
	return &RAGChain{
		retriever: retriever,
		llm:       llm,
		prompts:   prompts,
		collector: collector,
		policy:    policy,
		opts:      opts,
	}
}

// Ask answers the question from indexed documents. Failures in the
// query path come back as a failed Answer with a user-facing message;
// the error return is reserved for invalid input.
func (c *RAGChain) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrInvalidInput
	}

	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	started := time.Now()
	answer := &domain.Answer{Question: question}

	// Retrieval strictly precedes generation.
	results, err := c.retriever.Retrieve(ctx, question)
	answer.RetrievalTime = time.Since(started)
	if err != nil {
		return c.fail(answer, started, err), nil
	}
	answer.Sources = results

	if len(results) == 0 {
		// Nothing relevant indexed; answer without calling the LLM.
		text, loadErr := c.prompts.Load(driven.PromptNoContext)
		if loadErr != nil {
			return c.fail(answer, started, loadErr), nil
		}
		answer.Text = text
		c.record(answer, started, "")
		return answer, nil
	}

	contextBlock, kept := c.assembleContext(results)
	messages, err := c.buildMessages(contextBlock, question)
	if err != nil {
		return c.fail(answer, started, err), nil
	}

	genStarted := time.Now()
	var result *driven.ChatResult
	err = c.policy.Do(ctx, "chat completion", func(ctx context.Context) error {
		var chatErr error
		result, chatErr = c.llm.Chat(ctx, messages, driven.ChatOptions{
			MaxTokens:   c.opts.MaxTokens,
			Temperature: c.opts.Temperature,
		})
		return chatErr
	})
	answer.GenerationTime = time.Since(genStarted)
	if err != nil {
		if retry.Exhausted(err) {
			err = fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
		}
		return c.fail(answer, started, err), nil
	}

	answer.Text = result.Content
	answer.Usage = result.Usage
	answer.Citations = extractCitations(result.Content, kept)
	c.record(answer, started, "")

	logger.Debug("Answered in %s (retrieval %s, generation %s, %d tokens)",
		time.Since(started), answer.RetrievalTime, answer.GenerationTime, answer.Usage.TotalTokens)
	return answer, nil
}

// fail marks the answer failed with a user-facing message and records
// the query. Retrieval time is preserved even when the deadline fired
// mid-generation.
func (c *RAGChain) fail(answer *domain.Answer, started time.Time, err error) *domain.Answer {
	answer.Failed = true

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrTimeout):
		answer.FailureKind = FailureTimeout
		answer.Text = "The request timed out. Please try again."
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		answer.FailureKind = FailureRetrieval
		answer.Text = "The document index is currently unavailable. Please try again shortly."
	case errors.Is(err, domain.ErrGenerationUnavailable):
		answer.FailureKind = FailureGeneration
		answer.Text = "The answer service is currently unavailable. Please try again shortly."
	default:
		answer.FailureKind = FailureUnexpected
		answer.Text = "Something went wrong while answering. Please try again."
	}

	logger.Warn("Query failed (%s): %v", answer.FailureKind, err)
	c.record(answer, started, err.Error())
	return answer
}

// record pushes the query outcome into the collector.
func (c *RAGChain) record(answer *domain.Answer, started time.Time, errMsg string) {
	if c.collector == nil {
		return
	}
	c.collector.Record(metrics.QueryRecord{
		Question:       answer.Question,
		RetrievalTime:  answer.RetrievalTime,
		GenerationTime: answer.GenerationTime,
		TotalTime:      time.Since(started),
		NumResults:     len(answer.Sources),
		TokensUsed:     answer.Usage.TotalTokens,
		Error:          errMsg,
	})
}

// assembleContext renders the retrieved chunks as numbered [Source N]
// blocks. When the blocks exceed the char budget, the lowest-scored
// chunks are dropped first; the kept chunks stay in ranking order and
// are returned so citations can map markers back to them.
func (c *RAGChain) assembleContext(results []domain.RetrievalResult) (string, []domain.RetrievalResult) {
	kept := fitToBudget(results, c.opts.ContextCharBudget)

	var b strings.Builder
	for i, r := range kept {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "[Source %d]\n", i+1)
		fmt.Fprintf(&b, "Source: %s (Page %d)\n", r.SourceFile, r.PageNumber)
		fmt.Fprintf(&b, "Content: %s\n", r.Content)
	}
	return b.String(), kept
}

// fitToBudget drops the lowest-scored results until the combined
// content fits the budget. At least one result is always kept.
func fitToBudget(results []domain.RetrievalResult, budget int) []domain.RetrievalResult {
	kept := make([]domain.RetrievalResult, len(results))
	copy(kept, results)

	total := func() int {
		n := 0
		for _, r := range kept {
			// Block framing is small relative to content; count
			// content plus a fixed allowance per block.
			n += len(r.Content) + 64
		}
		return n
	}

	for len(kept) > 1 && total() > budget {
		lowest := 0
		for i := 1; i < len(kept); i++ {
			if effectiveScore(kept[i]) < effectiveScore(kept[lowest]) {
				lowest = i
			}
		}
		kept = append(kept[:lowest], kept[lowest+1:]...)
	}
	return kept
}

// effectiveScore prefers the reranker score when the reranking pass ran.
func effectiveScore(r domain.RetrievalResult) float64 {
	if r.RerankerScore != nil {
		return *r.RerankerScore
	}
	return r.Score
}

// buildMessages loads the prompts and renders the chat messages.
func (c *RAGChain) buildMessages(contextBlock, question string) ([]driven.ChatMessage, error) {
	system, err := c.prompts.Load(driven.PromptSystem)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}
	template, err := c.prompts.Load(driven.PromptQuestion)
	if err != nil {
		return nil, fmt.Errorf("load question prompt: %w", err)
	}
	return []driven.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf(template, contextBlock, question)},
	}, nil
}

// extractCitations maps [Source N] markers in the answer back to the
// chunks they reference, ordered by first appearance and deduplicated.
// Markers pointing outside the kept sources are ignored.
func extractCitations(text string, sources []domain.RetrievalResult) []domain.Citation {
	matches := sourceMarker.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	type hit struct {
		n   int
		pos int
	}
	seen := make(map[int]int)
	var hits []hit
	for _, m := range matches {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || n < 1 || n > len(sources) {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = m[0]
		hits = append(hits, hit{n: n, pos: m[0]})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	citations := make([]domain.Citation, 0, len(hits))
	for _, h := range hits {
		src := sources[h.n-1]
		citations = append(citations, domain.Citation{
			Marker:     fmt.Sprintf("[Source %d]", h.n),
			SourceFile: src.SourceFile,
			Title:      src.Title,
			PageNumber: src.PageNumber,
		})
	}
	return citations
}
