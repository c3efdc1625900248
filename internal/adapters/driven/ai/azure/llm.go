package azure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// LLMConfig holds configuration for the Azure chat adapter.
type LLMConfig struct {
	// Endpoint is the Azure OpenAI resource URL (required).
	Endpoint string

	// APIKey authenticates against the resource (required).
	APIKey string

	// APIVersion selects the service API version.
	APIVersion string

	// Deployment is the chat model deployment name (required).
	Deployment string

	// Timeout bounds a single request (default 60s).
	Timeout time.Duration

	// HTTPClient overrides the default client. Used in tests.
	HTTPClient *http.Client
}

// LLMService produces chat completions via an Azure OpenAI deployment.
type LLMService struct {
	client     *openai.Client
	deployment string
}

// NewLLMService creates a chat adapter for a deployment.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azure: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("azure: API key is required")
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("azure: chat deployment is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
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

	return &LLMService{
		client:     openai.NewClientWithConfig(clientCfg),
		deployment: cfg.Deployment,
	}, nil
}

// Chat sends the messages and returns the completion with usage.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (*driven.ChatResult, error) {
	if len(messages) == 0 {
		return nil, domain.ErrInvalidInput
	}

	req := openai.ChatCompletionRequest{
		Model:       s.deployment,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	for i, msg := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, mapAPIError("chat", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("azure: no completion choices returned")
	}

	choice := resp.Choices[0]
	return &driven.ChatResult{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// ModelName returns the deployment name in use.
func (s *LLMService) ModelName() string {
	return s.deployment
}

// Ping sends a one-token completion to verify the deployment responds.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.Chat(ctx, []driven.ChatMessage{
		{Role: "user", Content: "ping"},
	}, driven.ChatOptions{MaxTokens: 1})
	return err
}
