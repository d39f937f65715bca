package llm

import "context"

// LLMProvider is the interface every model backend implements.
// Implementations must be safe for concurrent use.
type LLMProvider interface {
	// Name returns the provider name (e.g. "openai", "anthropic").
	Name() string

	// Model returns the default model this provider was configured with.
	Model() string

	// Complete sends a completion request.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CompleteWithTools sends a completion request with tool definitions.
	CompleteWithTools(ctx context.Context, req CompletionRequest, tools []ToolDef) (*CompletionResponse, error)
}

// ProviderConfig holds the settings shared by all provider backends.
type ProviderConfig struct {
	APIKey       string `mapstructure:"api_key" yaml:"api_key"`
	DefaultModel string `mapstructure:"model" yaml:"model"`
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
}
