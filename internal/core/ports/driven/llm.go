package driven

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// ChatMessage is a single message in a chat completion request.
type ChatMessage struct {
	// Role is "system", "user" or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures a chat completion call.
type ChatOptions struct {
	// MaxTokens limits the completion length. Zero uses the service default.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float32
}

// ChatResult is a completion with its reported usage.
type ChatResult struct {
	// Content is the generated text.
	Content string

	// FinishReason is the service's stop reason.
	FinishReason string

	// Usage is the reported token consumption.
	Usage domain.TokenUsage
}

// LLMService produces chat completions from a managed endpoint.
type LLMService interface {
	// Chat sends the messages and returns the completion with usage.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*ChatResult, error)

	// ModelName returns the deployment or model identifier in use.
	ModelName() string

	// Ping validates the endpoint is reachable and the deployment exists.
	Ping(ctx context.Context) error
}
