package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/retry"
)

// --- Mock implementations ---

// noSleepPolicy retries without real delays.
func noSleepPolicy() retry.Policy {
	return retry.DefaultPolicy().WithSleep(func(context.Context, time.Duration) error {
		return nil
	})
}

// mockEmbedder implements driven.EmbeddingService for testing.
// failures fails that many calls with failErr before succeeding.
type mockEmbedder struct {
	mu       sync.Mutex
	dims     int
	vecDims  int // length of returned vectors; zero means dims
	failures int
	failErr  error
	calls    int
	batches  [][]string
	pingErr  error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return nil, m.failErr
	}
	m.batches = append(m.batches, texts)

	dims := m.vecDims
	if dims == 0 {
		dims = m.dims
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, dims)
		if dims > 0 {
			v[0] = 1
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }

func (m *mockEmbedder) Ping(context.Context) error { return m.pingErr }

// mockSearchIndex implements driven.SearchIndex for testing.
type mockSearchIndex struct {
	mu            sync.Mutex
	results       []domain.RetrievalResult
	queryFailures int
	queryErr      error
	queryCalls    int
	uploaded      []domain.IndexRecord
	uploadResult  *driven.UploadResult
	uploadErr     error
	exists        bool
	existsErr     error
	count         int64
	ensuredDims   []int
	deletes       int
}

func (m *mockSearchIndex) EnsureIndex(_ context.Context, dimension int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensuredDims = append(m.ensuredDims, dimension)
	m.exists = true
	return nil
}

func (m *mockSearchIndex) DeleteIndex(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	m.exists = false
	return nil
}

func (m *mockSearchIndex) Exists(context.Context) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockSearchIndex) Upload(_ context.Context, records []domain.IndexRecord) (*driven.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return m.uploadResult, m.uploadErr
	}
	m.uploaded = append(m.uploaded, records...)
	if m.uploadResult != nil {
		return m.uploadResult, nil
	}
	return &driven.UploadResult{Uploaded: len(records)}, nil
}

func (m *mockSearchIndex) Query(context.Context, string, []float32, domain.QueryOptions) ([]domain.RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	if m.queryFailures > 0 {
		m.queryFailures--
		return nil, m.queryErr
	}
	return m.results, nil
}

func (m *mockSearchIndex) DocumentCount(context.Context) (int64, error) {
	return m.count, nil
}

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	mu       sync.Mutex
	content  string
	usage    domain.TokenUsage
	failures int
	failErr  error
	delay    time.Duration
	calls    [][]driven.ChatMessage
	pingErr  error
}

func (m *mockLLM) Chat(ctx context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (*driven.ChatResult, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return nil, m.failErr
	}
	m.calls = append(m.calls, messages)
	return &driven.ChatResult{
		Content:      m.content,
		FinishReason: "stop",
		Usage:        m.usage,
	}, nil
}

func (m *mockLLM) ModelName() string { return "gpt-4o" }

func (m *mockLLM) Ping(context.Context) error { return m.pingErr }

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct{}

func (mockPromptStore) Load(name string) (string, error) {
	switch name {
	case driven.PromptSystem:
		return "Answer only from the provided context.", nil
	case driven.PromptQuestion:
		return "Context:\n%s\n\nQuestion: %s", nil
	case driven.PromptNoContext:
		return "I don't have enough information to answer that question.", nil
	}
	return "", errors.New("unknown prompt: " + name)
}

// mockConnector implements driven.Connector for testing.
type mockConnector struct {
	docs     []domain.RawDocument
	loadErrs []error
	watchCh  chan domain.RawDocument
}

func (m *mockConnector) Scan(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docsCh := make(chan domain.RawDocument)
	errsCh := make(chan error, len(m.loadErrs)+1)
	go func() {
		defer close(docsCh)
		defer close(errsCh)
		for _, err := range m.loadErrs {
			errsCh <- err
		}
		for _, doc := range m.docs {
			select {
			case docsCh <- doc:
			case <-ctx.Done():
				return
			}
		}
	}()
	return docsCh, errsCh
}

func (m *mockConnector) Watch(context.Context) (<-chan domain.RawDocument, error) {
	if m.watchCh == nil {
		closed := make(chan domain.RawDocument)
		close(closed)
		return closed, nil
	}
	return m.watchCh, nil
}

func (m *mockConnector) Close() error { return nil }

// mockRegistry implements driven.NormaliserRegistry for testing.
// It passes raw content through as the document text.
type mockRegistry struct {
	failURIs map[string]error
}

func (m *mockRegistry) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if err, ok := m.failURIs[raw.URI]; ok {
		return nil, err
	}
	return &driven.NormaliseResult{
		Document: domain.Document{
			ID:      raw.URI,
			URI:     raw.URI,
			Title:   "Test Document",
			Content: string(raw.Content),
		},
	}, nil
}

func (m *mockRegistry) Register(driven.Normaliser) {}

func (m *mockRegistry) SupportedMIMETypes() []string { return nil }
