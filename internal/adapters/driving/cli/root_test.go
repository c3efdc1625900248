package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/config"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/metrics"
)

// setupTestServices swaps the package-level services for mocks and
// disables the wiring pre-run. The returned cleanup restores
// everything; always defer it.
func setupTestServices() func() {
	oldPreRun := rootCmd.PersistentPreRunE
	oldCfg := cfg
	oldAnswer := answerService
	oldPipeline := ingestPipeline
	oldWatcher := ingestWatcher
	oldDiagnostics := diagnostics
	oldIndex := searchIndex
	oldLedger := ingestLedger
	oldCollector := collector

	rootCmd.PersistentPreRunE = nil
	cfg = &config.Config{
		SearchIndex:        "documents-test",
		ChunkSize:          1000,
		ChunkOverlap:       200,
		TopK:               5,
		IngestWorkers:      4,
		EmbeddingDimension: 1536,
		RequestTimeout:     30 * time.Second,
		ListenAddr:         ":8080",
	}
	answerService = &mockAnswerService{}
	pipeline := &mockPipeline{}
	ingestPipeline = pipeline
	ingestWatcher = pipeline
	diagnostics = &mockDiagnostics{}
	searchIndex = &mockIndex{exists: true, count: 42}
	ingestLedger = &mockLedger{}
	collector = metrics.NewCollector()

	return func() {
		rootCmd.PersistentPreRunE = oldPreRun
		cfg = oldCfg
		answerService = oldAnswer
		ingestPipeline = oldPipeline
		ingestWatcher = oldWatcher
		diagnostics = oldDiagnostics
		searchIndex = oldIndex
		ingestLedger = oldLedger
		collector = oldCollector
	}
}

type mockAnswerService struct {
	asked  []string
	answer *domain.Answer
	err    error
}

func (m *mockAnswerService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	m.asked = append(m.asked, question)
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{
		Question: question,
		Text:     "Employees get 25 days of annual leave [Source 1].",
		Citations: []domain.Citation{
			{Marker: "[Source 1]", SourceFile: "handbook.pdf", Title: "Employee Handbook", PageNumber: 12},
		},
		Sources: []domain.RetrievalResult{
			{Key: "c1", Content: "Annual leave is 25 days.", SourceFile: "handbook.pdf", PageNumber: 12, Score: 0.91},
		},
		RetrievalTime:  120 * time.Millisecond,
		GenerationTime: 800 * time.Millisecond,
		Usage:          domain.TokenUsage{PromptTokens: 500, CompletionTokens: 60, TotalTokens: 560},
	}, nil
}

type mockPipeline struct {
	runs    []domain.IngestOptions
	summary *domain.IngestSummary
	err     error
}

func (m *mockPipeline) Run(_ context.Context, opts domain.IngestOptions) (*domain.IngestSummary, error) {
	m.runs = append(m.runs, opts)
	if m.err != nil {
		return nil, m.err
	}
	if m.summary != nil {
		return m.summary, nil
	}
	now := time.Now()
	return &domain.IngestSummary{
		RunID:      "run-1",
		Folder:     opts.Folder,
		Processed:  3,
		Chunks:     12,
		Uploaded:   12,
		StartedAt:  now.Add(-2 * time.Second),
		FinishedAt: now,
	}, nil
}

func (m *mockPipeline) Watch(ctx context.Context, opts domain.IngestOptions, onRun func(*domain.IngestSummary)) error {
	summary, err := m.Run(ctx, opts)
	if err != nil {
		return err
	}
	onRun(summary)
	return context.Canceled
}

type mockDiagnostics struct {
	results []driving.CheckResult
}

func (m *mockDiagnostics) Check(context.Context) []driving.CheckResult {
	if m.results != nil {
		return m.results
	}
	return []driving.CheckResult{
		{Name: "configuration", Passed: true, Detail: "valid"},
		{Name: "embedding endpoint", Passed: true, Detail: "reachable, 1536 dimensions"},
		{Name: "search service", Passed: true, Detail: "index exists, 42 documents"},
		{Name: "chat deployment", Passed: true, Detail: "reachable (gpt-4o)"},
	}
}

type mockIndex struct {
	exists   bool
	count    int64
	ensured  []int
	deletes  int
	existErr error
}

func (m *mockIndex) EnsureIndex(_ context.Context, dimension int) error {
	m.ensured = append(m.ensured, dimension)
	return nil
}

func (m *mockIndex) DeleteIndex(context.Context) error {
	m.deletes++
	return nil
}

func (m *mockIndex) Exists(context.Context) (bool, error) {
	return m.exists, m.existErr
}

func (m *mockIndex) Upload(_ context.Context, records []domain.IndexRecord) (*driven.UploadResult, error) {
	return &driven.UploadResult{Uploaded: len(records)}, nil
}

func (m *mockIndex) Query(context.Context, string, []float32, domain.QueryOptions) ([]domain.RetrievalResult, error) {
	return nil, nil
}

func (m *mockIndex) DocumentCount(context.Context) (int64, error) {
	return m.count, nil
}

type mockLedger struct {
	runs []domain.IngestSummary
}

func (m *mockLedger) RecordRun(_ context.Context, summary *domain.IngestSummary) error {
	m.runs = append(m.runs, *summary)
	return nil
}

func (m *mockLedger) RecordDocument(context.Context, string, string, string, string, int) error {
	return nil
}

func (m *mockLedger) LastRun(context.Context) (*domain.IngestSummary, error) {
	if len(m.runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.runs[len(m.runs)-1], nil
}

func (m *mockLedger) Runs(_ context.Context, limit int) ([]domain.IngestSummary, error) {
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	return m.runs[:limit], nil
}

func (m *mockLedger) Close() error { return nil }
