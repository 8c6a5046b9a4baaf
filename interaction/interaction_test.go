package interaction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConstructors_SetKindAndAgent tests the union discriminants
func TestConstructors_SetKindAndAgent(t *testing.T) {
	tests := []struct {
		name  string
		it    Interaction
		kind  Kind
		agent Agent
	}{
		{"system", NewSystem("be brief"), KindSystem, AgentSystem},
		{"user", NewUser("hello"), KindUser, AgentUser},
		{"assistant", NewAssistant("hi"), KindAssistant, AgentAssistant},
		{"error", NewError("boom"), KindError, AgentAssistant},
		{"tool call", NewToolCall("c1", "gh_get", nil), KindToolCall, AgentAssistant},
		{"tool result", NewToolResult("c1", "gh_get", nil), KindToolResult, AgentTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.it.Kind)
			assert.Equal(t, tt.agent, tt.it.Agent)
		})
	}
}

// TestNewToolCall_EmptyID_GeneratesUUID tests id correlation for providers without call ids
func TestNewToolCall_EmptyID_GeneratesUUID(t *testing.T) {
	it := NewToolCall("", "gh_get", json.RawMessage(`{}`))
	require.NotNil(t, it.ToolCall)
	assert.NotEmpty(t, it.ToolCall.ID)

	other := NewToolCall("", "gh_get", nil)
	assert.NotEqual(t, it.ToolCall.ID, other.ToolCall.ID)

	kept := NewToolCall("call-7", "gh_get", nil)
	assert.Equal(t, "call-7", kept.ToolCall.ID)
}

// TestPendingToolCalls_UnansweredOnly tests pending call extraction
func TestPendingToolCalls_UnansweredOnly(t *testing.T) {
	body := []Interaction{
		NewUser("list my components"),
		NewToolCall("a", "gh_get", nil),
		NewToolCall("b", "gh_list", nil),
		NewToolResult("a", "gh_get", json.RawMessage(`{"success":true}`)),
	}

	pending := PendingToolCalls(body)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)
	assert.Equal(t, "gh_list", pending[0].Name)
}

// TestPendingToolCalls_AllAnswered_Empty tests the completed case
func TestPendingToolCalls_AllAnswered_Empty(t *testing.T) {
	body := []Interaction{
		NewToolCall("a", "gh_get", nil),
		NewToolResult("a", "gh_get", nil),
		NewAssistant("done"),
	}
	assert.Empty(t, PendingToolCalls(body))
	assert.Empty(t, PendingToolCalls(nil))
}

// TestPendingToolCalls_BodyOrder tests that pending calls keep body order
func TestPendingToolCalls_BodyOrder(t *testing.T) {
	body := []Interaction{
		NewToolCall("x", "first", nil),
		NewToolCall("y", "second", nil),
		NewToolCall("z", "third", nil),
	}
	pending := PendingToolCalls(body)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{"x", "y", "z"}, []string{pending[0].ID, pending[1].ID, pending[2].ID})
}

// TestReturn_Fail_RecordsErrorState tests failure bookkeeping
func TestReturn_Fail_RecordsErrorState(t *testing.T) {
	r := NewReturn()
	assert.Equal(t, StatusRequested, r.Status)
	assert.NotEmpty(t, r.ID)

	r.Fail("openai", "HTTP %d from %s", 500, "api.openai.com")
	assert.False(t, r.Success)
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, "error", r.Metrics.FinishReason)

	errs := r.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "HTTP 500 from api.openai.com", errs[0].Text)
	assert.Equal(t, "openai", errs[0].Origin)
}

// TestReturn_Errors_FiltersBySeverity tests message filtering
func TestReturn_Errors_FiltersBySeverity(t *testing.T) {
	r := NewReturn()
	r.AddMessage(SeverityRemark, "core", "using default model")
	r.AddMessage(SeverityWarning, "core", "artifact hash unknown")
	r.AddMessage(SeverityError, "core", "no model available")

	require.Len(t, r.Messages, 3)
	errs := r.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "no model available", errs[0].Text)
}

// TestReturn_Text_ConcatenatesAssistantTurns tests answer extraction
func TestReturn_Text_ConcatenatesAssistantTurns(t *testing.T) {
	r := NewReturn()
	r.Body = []Interaction{
		NewUser("hi"),
		NewAssistant("Hello"),
		NewToolResult("a", "gh_get", nil),
		NewAssistant(", world"),
	}
	assert.Equal(t, "Hello, world", r.Text())
}

// TestReturn_LastToolCall_LastIsAuthoritative tests last-wins lookup
func TestReturn_LastToolCall_LastIsAuthoritative(t *testing.T) {
	r := NewReturn()
	assert.Nil(t, r.LastToolCall())
	assert.Nil(t, r.LastToolResult())

	r.Body = []Interaction{
		NewToolCall("a", "gh_get", nil),
		NewToolCall("b", "gh_list", nil),
		NewToolResult("a", "gh_get", nil),
	}
	assert.Equal(t, "b", r.LastToolCall().ID)
	assert.Equal(t, "a", r.LastToolResult().ToolCallID)
}
