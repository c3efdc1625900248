// Package azure provides embedding and chat adapters for Azure OpenAI
// deployments.
package azure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultAPIVersion = "2024-02-01"
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = 1536
)

// EmbeddingConfig holds configuration for the Azure embedding adapter.
type EmbeddingConfig struct {
	// Endpoint is the Azure OpenAI resource URL (required).
	Endpoint string

	// APIKey authenticates against the resource (required).
	APIKey string

	// APIVersion selects the service API version.
	APIVersion string

	// Deployment is the embedding model deployment name (required).
	Deployment string

	// Dimensions is the expected vector size (default 1536).
	Dimensions int

	// Timeout bounds a single request (default 60s).
	Timeout time.Duration

	// RequestsPerMinute throttles outgoing calls. Zero disables the
	// limiter.
	RequestsPerMinute int

	// HTTPClient overrides the default client. Used in tests.
	HTTPClient *http.Client
}

// EmbeddingService generates embeddings via an Azure OpenAI deployment.
type EmbeddingService struct {
	client     *openai.Client
	deployment string
	dimensions int
	limiter    *rate.Limiter
}

// NewEmbeddingService creates an embedding adapter for a deployment.
func NewEmbeddingService(cfg EmbeddingConfig) (*EmbeddingService, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azure: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("azure: API key is required")
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("azure: embedding deployment is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	clientCfg.APIVersion = cfg.APIVersion
	deployment := cfg.Deployment
	clientCfg.AzureModelMapperFunc = func(string) string { return deployment }
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	return &EmbeddingService{
		client:     openai.NewClientWithConfig(clientCfg),
		deployment: cfg.Deployment,
		dimensions: cfg.Dimensions,
		limiter:    limiter,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("azure: no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
// Output order matches input order regardless of response order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.deployment),
		Input: texts,
	})
	if err != nil {
		return nil, mapAPIError("embed", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("azure: requested %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("azure: embedding index %d out of range", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}

	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// Deployment returns the deployment name in use.
func (s *EmbeddingService) Deployment() string {
	return s.deployment
}

// Ping embeds a probe string to verify the deployment responds with
// vectors of the configured dimension.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	vector, err := s.Embed(ctx, "ping")
	if err != nil {
		return err
	}
	if len(vector) != s.dimensions {
		return fmt.Errorf("azure: deployment returns %d-dim vectors, expected %d", len(vector), s.dimensions)
	}
	return nil
}
