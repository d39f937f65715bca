package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// Default policy values for the generation client.
const (
	DefaultMaxRetries           = 3
	DefaultRetryBaseDelay       = 1 * time.Second
	DefaultRetryMaxDelay        = 30 * time.Second
	DefaultRetryFactor          = 2.0
	DefaultMaxToolIterations    = 10
	DefaultMaxValidationRetries = 3
)

// SchemaDef describes the structured output a schema-mode generation must
// produce. Instructions is the JSON-schema text injected into the system
// prompt; Decode parses and validates the model's output, returning a typed
// value or a descriptive error that is fed back to the model on retry.
type SchemaDef struct {
	Name         string
	Instructions string
	Decode       func(data []byte) (any, error)
}

// GenerateRequest is the unified generation request. Tools and Schema are
// both optional; when both are set the tool loop runs first and the final
// text is then validated against the schema.
type GenerateRequest struct {
	Messages      []Message
	Tools         ToolSet
	Schema        *SchemaDef
	MaxIterations int
	Temperature   float64
	MaxTokens     int
}

// GenerateResult is the outcome of a Generate call.
type GenerateResult struct {
	Text        string
	Parsed      any
	ToolCalls   []ToolInvocation
	TotalTokens int
}

// Client wraps an LLMProvider with retry/backoff, an agentic tool loop, and
// schema-validated structured output.
type Client struct {
	provider             LLMProvider
	model                string
	maxRetries           int
	retryBase            time.Duration
	retryMax             time.Duration
	maxValidationRetries int
	logger               *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithModel overrides the model used for all requests.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithLogger sets the structured logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithRetryPolicy sets the transient-failure retry policy: total attempts
// and the base/cap of the exponential backoff delay.
func WithRetryPolicy(maxRetries int, base, max time.Duration) ClientOption {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if base > 0 {
			c.retryBase = base
		}
		if max > 0 {
			c.retryMax = max
		}
	}
}

// WithMaxValidationRetries sets the total schema-validation attempts.
func WithMaxValidationRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxValidationRetries = n
		}
	}
}

// NewClient creates a generation client around a provider.
func NewClient(provider LLMProvider, opts ...ClientOption) *Client {
	c := &Client{
		provider:             provider,
		model:                provider.Model(),
		maxRetries:           DefaultMaxRetries,
		retryBase:            DefaultRetryBaseDelay,
		retryMax:             DefaultRetryMaxDelay,
		maxValidationRetries: DefaultMaxValidationRetries,
		logger:               slog.Default(),
		sleep:                sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name used for requests.
func (c *Client) Model() string {
	return c.model
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Generate runs a unified generation request. See GenerateRequest for the
// four supported modes. On failure the result may still be non-nil,
// carrying the tokens consumed by the attempts that did run.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if len(req.Messages) == 0 {
		return nil, types.NewError(ErrInvalidRequest, "generate requires at least one message")
	}

	switch {
	case req.Tools != nil:
		return c.generateWithTools(ctx, req)
	case req.Schema != nil:
		return c.generateStructured(ctx, req.Messages, req)
	default:
		resp, err := c.completeWithRetry(ctx, c.completionRequest(req.Messages, req, false), nil)
		if err != nil {
			return nil, err
		}
		return &GenerateResult{
			Text:        resp.Message.Content,
			TotalTokens: resp.Usage.TotalTokens,
		}, nil
	}
}

func (c *Client) completionRequest(messages []Message, req GenerateRequest, jsonMode bool) CompletionRequest {
	return CompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		JSONMode:    jsonMode,
	}
}

// completeWithRetry executes one completion with exponential backoff on
// retryable errors. Non-retryable errors surface immediately.
func (c *Client) completeWithRetry(ctx context.Context, req CompletionRequest, tools []ToolDef) (*CompletionResponse, error) {
	delay := c.retryBase
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		var resp *CompletionResponse
		var err error
		if len(tools) > 0 {
			resp, err = c.provider.CompleteWithTools(ctx, req, tools)
		} else {
			resp, err = c.provider.Complete(ctx, req)
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
		if attempt == c.maxRetries {
			break
		}

		c.logger.WarnContext(ctx, "retryable completion failure",
			"provider", c.provider.Name(),
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return nil, types.WrapError(ErrContextCanceled, "generation cancelled during backoff", sleepErr)
		}
		delay *= DefaultRetryFactor
		if delay > c.retryMax {
			delay = c.retryMax
		}
	}

	return nil, lastErr
}

// generateWithTools runs the agentic tool loop: dispatch every requested
// tool call, feed results back, and stop when a response carries no calls.
// Unknown tools and dispatch failures become error results the model can
// react to; they never abort the loop.
func (c *Client) generateWithTools(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	defs := req.Tools.Defs()
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
	}

	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxToolIterations
	}

	messages := make([]Message, len(req.Messages))
	copy(messages, req.Messages)

	result := &GenerateResult{}

	for iteration := 0; iteration < maxIterations; iteration++ {
		resp, err := c.completeWithRetry(ctx, c.completionRequest(messages, req, false), defs)
		if err != nil {
			return result, err
		}
		result.TotalTokens += resp.Usage.TotalTokens

		if len(resp.Message.ToolCalls) == 0 {
			result.Text = resp.Message.Content
			if req.Schema != nil {
				return c.validateFinalText(ctx, messages, req, result)
			}
			return result, nil
		}

		messages = append(messages, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			output := c.dispatchTool(ctx, req.Tools, defs, call)
			result.ToolCalls = append(result.ToolCalls, ToolInvocation{
				Name:      call.Name,
				Arguments: call.Arguments,
				Result:    output,
			})
			messages = append(messages, NewToolMessage(call.ID, output))
		}
	}

	c.logger.WarnContext(ctx, "tool loop exhausted max iterations",
		"max_iterations", maxIterations,
		"tool_calls", len(result.ToolCalls),
	)
	if req.Schema != nil {
		return c.validateFinalText(ctx, messages, req, result)
	}
	return result, nil
}

// dispatchTool executes one tool call and serializes its outcome. Failures
// are encoded as error JSON so the model can self-correct.
func (c *Client) dispatchTool(ctx context.Context, tools ToolSet, defs []ToolDef, call ToolCall) string {
	known := false
	for _, def := range defs {
		if def.Name == call.Name {
			known = true
			break
		}
	}
	if !known {
		c.logger.WarnContext(ctx, "model requested unknown tool", "tool", call.Name)
		return errorJSON("unknown tool: " + call.Name)
	}

	value, err := tools.Dispatch(ctx, call.Name, json.RawMessage(call.Arguments))
	if err != nil {
		c.logger.WarnContext(ctx, "tool dispatch failed", "tool", call.Name, "error", err)
		return errorJSON(err.Error())
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errorJSON("tool result serialization failed: " + err.Error())
	}
	return string(data)
}

func errorJSON(message string) string {
	data, _ := json.Marshal(map[string]string{"error": message})
	return string(data)
}

// generateStructured runs schema-mode generation: the schema instructions
// are injected into the system prompt, the completion runs in JSON mode,
// and decode failures are fed back to the model for up to
// maxValidationRetries total attempts.
func (c *Client) generateStructured(ctx context.Context, messages []Message, req GenerateRequest) (*GenerateResult, error) {
	withSchema := injectSchemaInstructions(messages, req.Schema)

	result := &GenerateResult{}
	var lastErr error

	for attempt := 1; attempt <= c.maxValidationRetries; attempt++ {
		resp, err := c.completeWithRetry(ctx, c.completionRequest(withSchema, req, true), nil)
		if err != nil {
			return result, err
		}
		result.TotalTokens += resp.Usage.TotalTokens
		result.Text = resp.Message.Content

		parsed, decodeErr := req.Schema.Decode([]byte(resp.Message.Content))
		if decodeErr == nil {
			result.Parsed = parsed
			return result, nil
		}
		lastErr = decodeErr

		c.logger.WarnContext(ctx, "structured output failed validation",
			"schema", req.Schema.Name,
			"attempt", attempt,
			"error", decodeErr,
		)
		withSchema = append(withSchema,
			NewAssistantMessage(resp.Message.Content),
			NewUserMessage(validationFeedback(decodeErr)),
		)
	}

	return result, types.WrapError(ErrSchemaValidationFailed,
		fmt.Sprintf("output failed %s validation after %d attempts", req.Schema.Name, c.maxValidationRetries),
		lastErr)
}

// validateFinalText applies the schema retry policy to the text produced by
// a tool-loop generation. The retry completions run without tools.
func (c *Client) validateFinalText(ctx context.Context, messages []Message, req GenerateRequest, result *GenerateResult) (*GenerateResult, error) {
	parsed, err := req.Schema.Decode([]byte(result.Text))
	if err == nil {
		result.Parsed = parsed
		return result, nil
	}
	lastErr := err

	retryMessages := append(messages, NewUserMessage(validationFeedback(err)))
	retryMessages = injectSchemaInstructions(retryMessages, req.Schema)

	for attempt := 2; attempt <= c.maxValidationRetries; attempt++ {
		resp, respErr := c.completeWithRetry(ctx, c.completionRequest(retryMessages, req, true), nil)
		if respErr != nil {
			return result, respErr
		}
		result.TotalTokens += resp.Usage.TotalTokens
		result.Text = resp.Message.Content

		parsed, err = req.Schema.Decode([]byte(resp.Message.Content))
		if err == nil {
			result.Parsed = parsed
			return result, nil
		}
		lastErr = err

		c.logger.WarnContext(ctx, "structured output failed validation",
			"schema", req.Schema.Name,
			"attempt", attempt,
			"error", err,
		)
		retryMessages = append(retryMessages,
			NewAssistantMessage(resp.Message.Content),
			NewUserMessage(validationFeedback(err)),
		)
	}

	return result, types.WrapError(ErrSchemaValidationFailed,
		fmt.Sprintf("output failed %s validation after %d attempts", req.Schema.Name, c.maxValidationRetries),
		lastErr)
}

// injectSchemaInstructions appends the schema contract to the system
// message, or prepends a new system message when there is none.
func injectSchemaInstructions(messages []Message, schema *SchemaDef) []Message {
	instructions := "You must respond with a single JSON object conforming to the " +
		schema.Name + " schema:\n\n" + schema.Instructions +
		"\n\nRespond ONLY with the JSON object. No markdown fences, no commentary."

	out := make([]Message, len(messages))
	copy(out, messages)

	if len(out) > 0 && out[0].Role == RoleSystem {
		out[0].Content = out[0].Content + "\n\n" + instructions
		return out
	}
	return append([]Message{NewSystemMessage(instructions)}, out...)
}

func validationFeedback(err error) string {
	return "Your previous response did not conform to the required schema. " +
		"Error: " + err.Error() + "\n" +
		"Respond again with ONLY a corrected JSON object."
}
