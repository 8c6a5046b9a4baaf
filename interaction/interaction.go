// Package interaction defines the provider-agnostic conversation model.
// Every provider decodes its wire format into an ordered sequence of
// Interaction values; ordering matters, the last ToolCall or ToolResult in
// a sequence is authoritative for the current turn.
package interaction

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Kind is the explicit discriminant of the Interaction union.
type Kind string

const (
	KindSystem     Kind = "system"
	KindUser       Kind = "user"
	KindAssistant  Kind = "assistant"
	KindToolCall   Kind = "tool_call"
	KindToolResult Kind = "tool_result"
	KindError      Kind = "error"
)

// Agent tags who produced an interaction on the wire.
type Agent string

const (
	AgentSystem    Agent = "system"
	AgentUser      Agent = "user"
	AgentAssistant Agent = "assistant"
	AgentTool      Agent = "tool"
)

// ToolCall is a request from the model to run a named local tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult carries the JSON result of an executed tool call back to the
// model.
type ToolResult struct {
	ToolCallID string          `json:"tool_call_id"`
	Name       string          `json:"name"`
	Result     json.RawMessage `json:"result"`
}

// Interaction is one turn's contribution to a conversation. Kind selects
// which payload field is populated; the others stay nil or empty.
type Interaction struct {
	Kind       Kind        `json:"kind"`
	Agent      Agent       `json:"agent"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// NewSystem creates a system-prompt interaction.
func NewSystem(text string) Interaction {
	return Interaction{Kind: KindSystem, Agent: AgentSystem, Text: text}
}

// NewUser creates a user-message interaction.
func NewUser(text string) Interaction {
	return Interaction{Kind: KindUser, Agent: AgentUser, Text: text}
}

// NewAssistant creates an assistant-message interaction.
func NewAssistant(text string) Interaction {
	return Interaction{Kind: KindAssistant, Agent: AgentAssistant, Text: text}
}

// NewToolCall creates a tool-call interaction. An empty id gets a fresh
// UUID so results can be correlated even for providers that omit call ids.
func NewToolCall(id, name string, arguments json.RawMessage) Interaction {
	if id == "" {
		id = uuid.NewString()
	}
	return Interaction{
		Kind:     KindToolCall,
		Agent:    AgentAssistant,
		ToolCall: &ToolCall{ID: id, Name: name, Arguments: arguments},
	}
}

// NewToolResult creates a tool-result interaction answering callID.
func NewToolResult(callID, name string, result json.RawMessage) Interaction {
	return Interaction{
		Kind:       KindToolResult,
		Agent:      AgentTool,
		ToolResult: &ToolResult{ToolCallID: callID, Name: name, Result: result},
	}
}

// NewError creates an error interaction with the given text.
func NewError(text string) Interaction {
	return Interaction{Kind: KindError, Agent: AgentAssistant, Text: text}
}
