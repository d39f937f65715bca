package llm

import (
	"context"
	"encoding/json"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// ToolDef describes a tool the model may call. Parameters is a JSON-schema
// object in map form, passed through to the provider unchanged.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Validate checks the tool definition for required fields.
func (t ToolDef) Validate() error {
	if t.Name == "" {
		return types.NewError(ErrInvalidRequest, "tool definition missing name")
	}
	if t.Description == "" {
		return types.NewError(ErrInvalidRequest, "tool definition missing description: "+t.Name)
	}
	return nil
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSet is the capability surface handed to the generation client: the
// tool definitions to advertise and a dispatcher for invocations. The
// dispatcher receives raw JSON arguments and returns a JSON-serializable
// result.
type ToolSet interface {
	Defs() []ToolDef
	Dispatch(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// ToolInvocation records one dispatched tool call and its serialized result.
type ToolInvocation struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
}
