package providers

import (
	"context"

	"github.com/sriharsha8991/adv-attack-simulation/internal/llm"
	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// New creates the provider named by providerName. Supported values:
// "openai", "anthropic", "googleai", "ollama".
func New(ctx context.Context, providerName string, cfg llm.ProviderConfig) (llm.LLMProvider, error) {
	switch providerName {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "googleai":
		return NewGoogleAIProvider(ctx, cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	default:
		return nil, types.NewError(llm.ErrProviderNotFound, "unknown provider: "+providerName)
	}
}
