package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

// Ensure Doctor implements the interface.
var _ driving.Diagnostics = (*Doctor)(nil)

// Doctor runs the connectivity self-test behind `docqa doctor`.
type Doctor struct {
	validateConfig func() error
	embedder       driven.EmbeddingService
	llm            driven.LLMService
	index          driven.SearchIndex
}

// NewDoctor creates a diagnostics runner. validateConfig reports
// configuration problems; the remaining dependencies may be nil when
// configuration is too incomplete to construct them.
func NewDoctor(
	validateConfig func() error,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	index driven.SearchIndex,
) *Doctor {
	return &Doctor{
		validateConfig: validateConfig,
		embedder:       embedder,
		llm:            llm,
		index:          index,
	}
}

// Check runs all checks and returns one result per check. A check that
// cannot run because its dependency is missing fails with an
// explanation rather than being skipped.
func (d *Doctor) Check(ctx context.Context) []driving.CheckResult {
	results := []driving.CheckResult{d.checkConfig()}

	results = append(results, d.checkEmbedding(ctx))
	results = append(results, d.checkSearch(ctx))
	results = append(results, d.checkChat(ctx))

	return results
}

func (d *Doctor) checkConfig() driving.CheckResult {
	result := driving.CheckResult{Name: "configuration"}
	if d.validateConfig == nil {
		result.Passed = true
		result.Detail = "not validated"
		return result
	}
	if err := d.validateConfig(); err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Passed = true
	result.Detail = "complete"
	return result
}

func (d *Doctor) checkEmbedding(ctx context.Context) driving.CheckResult {
	result := driving.CheckResult{Name: "embedding endpoint"}
	if d.embedder == nil {
		result.Detail = "not configured"
		return result
	}
	if err := d.embedder.Ping(ctx); err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Passed = true
	result.Detail = fmt.Sprintf("reachable, %d dimensions", d.embedder.Dimensions())
	return result
}

func (d *Doctor) checkSearch(ctx context.Context) driving.CheckResult {
	result := driving.CheckResult{Name: "search service"}
	if d.index == nil {
		result.Detail = "not configured"
		return result
	}

	exists, err := d.index.Exists(ctx)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	if !exists {
		result.Passed = true
		result.Detail = "reachable, index not created yet (run `docqa ingest` or `docqa index create`)"
		return result
	}

	count, err := d.index.DocumentCount(ctx)
	if err != nil {
		result.Detail = fmt.Sprintf("index exists but stats failed: %v", err)
		return result
	}
	result.Passed = true
	result.Detail = fmt.Sprintf("index present, %d documents", count)
	return result
}

func (d *Doctor) checkChat(ctx context.Context) driving.CheckResult {
	result := driving.CheckResult{Name: "chat deployment"}
	if d.llm == nil {
		result.Detail = "not configured"
		return result
	}
	if err := d.llm.Ping(ctx); err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Passed = true
	result.Detail = fmt.Sprintf("deployment %s reachable", d.llm.ModelName())
	return result
}
