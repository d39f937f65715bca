package graph

import (
	"context"
	"sync"
)

// MockClient is a test double for Client. Handlers are registered per Cypher
// query string; unregistered queries return an empty result.
type MockClient struct {
	mu       sync.Mutex
	handlers map[string]func(params map[string]any) (QueryResult, error)
	queries  []MockQuery

	ConnectErr error
	HealthErr  error
}

// MockQuery records one Query invocation.
type MockQuery struct {
	Cypher string
	Params map[string]any
}

// NewMockClient creates an empty mock graph client.
func NewMockClient() *MockClient {
	return &MockClient{
		handlers: make(map[string]func(params map[string]any) (QueryResult, error)),
	}
}

// On registers a handler for the given Cypher query.
func (m *MockClient) On(cypher string, handler func(params map[string]any) (QueryResult, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[cypher] = handler
}

// OnRecords registers a fixed record set for the given Cypher query.
func (m *MockClient) OnRecords(cypher string, records []map[string]any) {
	m.On(cypher, func(map[string]any) (QueryResult, error) {
		return QueryResult{Records: records}, nil
	})
}

// Queries returns a copy of all recorded invocations.
func (m *MockClient) Queries() []MockQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockQuery, len(m.queries))
	copy(out, m.queries)
	return out
}

func (m *MockClient) Connect(ctx context.Context) error { return m.ConnectErr }

func (m *MockClient) Close(ctx context.Context) error { return nil }

func (m *MockClient) Health(ctx context.Context) error { return m.HealthErr }

func (m *MockClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, MockQuery{Cypher: cypher, Params: params})
	handler := m.handlers[cypher]
	m.mu.Unlock()

	if handler == nil {
		return QueryResult{}, nil
	}
	return handler(params)
}
