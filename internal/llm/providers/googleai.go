package providers

import (
	"context"
	"os"

	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/sriharsha8991/adv-attack-simulation/internal/llm"
)

// GoogleAIProvider implements LLMProvider for Google Gemini models.
type GoogleAIProvider struct {
	client *googleai.GoogleAI
	config llm.ProviderConfig
}

// NewGoogleAIProvider creates a new Google AI provider.
func NewGoogleAIProvider(ctx context.Context, cfg llm.ProviderConfig) (*GoogleAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewAuthError("googleai", nil)
	}

	opts := []googleai.Option{
		googleai.WithAPIKey(apiKey),
	}
	if cfg.DefaultModel != "" {
		opts = append(opts, googleai.WithDefaultModel(cfg.DefaultModel))
	}

	client, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, llm.TranslateError("googleai", err)
	}

	return &GoogleAIProvider{client: client, config: cfg}, nil
}

// Name returns the provider name.
func (p *GoogleAIProvider) Name() string {
	return "googleai"
}

// Model returns the configured default model.
func (p *GoogleAIProvider) Model() string {
	return p.config.DefaultModel
}

// Complete sends a completion request.
func (p *GoogleAIProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := p.client.GenerateContent(ctx, toSchemaMessages(req.Messages), buildCallOptions(req)...)
	if err != nil {
		return nil, llm.TranslateError("googleai", err)
	}
	return fromLangchainResponse(resp, req.Model), nil
}

// CompleteWithTools sends a completion request with tool definitions.
func (p *GoogleAIProvider) CompleteWithTools(ctx context.Context, req llm.CompletionRequest, tools []llm.ToolDef) (*llm.CompletionResponse, error) {
	resp, err := p.client.GenerateContent(ctx, toSchemaMessages(req.Messages), buildCallOptionsWithTools(req, tools)...)
	if err != nil {
		return nil, llm.TranslateError("googleai", err)
	}
	return fromLangchainResponse(resp, req.Model), nil
}
