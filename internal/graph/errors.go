package graph

import "github.com/sriharsha8991/adv-attack-simulation/internal/types"

// Graph error codes follow the agent error pattern.
const (
	ErrCodeGraphConfigInvalid    types.ErrorCode = "GRAPH_CONFIG_INVALID"
	ErrCodeGraphConnectionFailed types.ErrorCode = "GRAPH_CONNECTION_FAILED"
	ErrCodeGraphConnectionClosed types.ErrorCode = "GRAPH_CONNECTION_CLOSED"
	ErrCodeGraphQueryFailed      types.ErrorCode = "GRAPH_QUERY_FAILED"
	ErrCodeGraphUnhealthy        types.ErrorCode = "GRAPH_UNHEALTHY"
)
