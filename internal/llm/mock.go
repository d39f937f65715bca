package llm

import (
	"context"
	"sync"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// MockProvider is a scripted test double for LLMProvider. Responses and
// errors are consumed in FIFO order; every request is recorded.
type MockProvider struct {
	mu        sync.Mutex
	name      string
	model     string
	responses []mockStep
	requests  []MockRequest
}

type mockStep struct {
	resp *CompletionResponse
	err  error
}

// MockRequest records one Complete/CompleteWithTools invocation.
type MockRequest struct {
	Request CompletionRequest
	Tools   []ToolDef
}

// NewMockProvider creates a mock provider with the given model name.
func NewMockProvider(model string) *MockProvider {
	return &MockProvider{name: "mock", model: model}
}

// EnqueueResponse schedules a successful response.
func (m *MockProvider) EnqueueResponse(resp *CompletionResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockStep{resp: resp})
}

// EnqueueText schedules a plain-text assistant response.
func (m *MockProvider) EnqueueText(text string, tokens int) {
	m.EnqueueResponse(&CompletionResponse{
		Model:        m.model,
		Message:      NewAssistantMessage(text),
		FinishReason: FinishReasonStop,
		Usage:        CompletionTokenUsage{TotalTokens: tokens},
	})
}

// EnqueueToolCalls schedules a response requesting the given tool calls.
func (m *MockProvider) EnqueueToolCalls(calls []ToolCall, tokens int) {
	m.EnqueueResponse(&CompletionResponse{
		Model: m.model,
		Message: Message{
			Role:      RoleAssistant,
			ToolCalls: calls,
		},
		FinishReason: FinishReasonToolCalls,
		Usage:        CompletionTokenUsage{TotalTokens: tokens},
	})
}

// EnqueueError schedules a failure.
func (m *MockProvider) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockStep{err: err})
}

// Requests returns a copy of all recorded invocations.
func (m *MockProvider) Requests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockProvider) Name() string  { return m.name }
func (m *MockProvider) Model() string { return m.model }

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return m.next(req, nil)
}

func (m *MockProvider) CompleteWithTools(ctx context.Context, req CompletionRequest, tools []ToolDef) (*CompletionResponse, error) {
	return m.next(req, tools)
}

func (m *MockProvider) next(req CompletionRequest, tools []ToolDef) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, MockRequest{Request: req, Tools: tools})

	if len(m.responses) == 0 {
		return nil, types.NewError(ErrCompletionFailed, "mock provider has no scripted responses left")
	}
	step := m.responses[0]
	m.responses = m.responses[1:]

	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}
