package interaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status tracks where a call sits in its lifecycle.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusRequested    Status = "requested"
	StatusCompleted    Status = "completed"
	StatusCallingTools Status = "calling_tools"
	StatusError        Status = "error"
)

// Severity classifies a user-facing message.
type Severity string

const (
	SeverityError   Severity = "Error"
	SeverityWarning Severity = "Warning"
	SeverityRemark  Severity = "Remark"
)

// Message is a severity-tagged, user-facing note attached to a call
// result. Failures surface through these rather than raw errors.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"message"`
	Origin   string   `json:"origin,omitempty"`
}

// Metrics captures per-call accounting attached after the HTTP exchange.
type Metrics struct {
	InputTokens    int           `json:"input_tokens"`
	OutputTokens   int           `json:"output_tokens"`
	CompletionTime time.Duration `json:"completion_time"`
	FinishReason   string        `json:"finish_reason"`
	Provider       string        `json:"provider"`
	Model          string        `json:"model"`
}

// Return wraps the outcome of one provider call: success flag, the ordered
// interaction sequence, metrics, and any user-facing messages. It is
// created once per call and not mutated after the call returns it.
type Return struct {
	ID       string        `json:"id"`
	Success  bool          `json:"success"`
	Status   Status        `json:"status"`
	Body     []Interaction `json:"body"`
	Metrics  Metrics       `json:"metrics"`
	Messages []Message     `json:"messages,omitempty"`
}

// NewReturn creates an empty result in the requested state.
func NewReturn() *Return {
	return &Return{ID: uuid.NewString(), Status: StatusRequested}
}

// NewErrorReturn creates a failed result carrying a single error message.
func NewErrorReturn(origin, format string, args ...any) *Return {
	r := NewReturn()
	r.Fail(origin, format, args...)
	return r
}

// Fail marks the result failed and records an error message.
func (r *Return) Fail(origin, format string, args ...any) {
	r.Success = false
	r.Status = StatusError
	r.Metrics.FinishReason = "error"
	r.AddMessage(SeverityError, origin, format, args...)
}

// AddMessage appends a severity-tagged message.
func (r *Return) AddMessage(sev Severity, origin, format string, args ...any) {
	r.Messages = append(r.Messages, Message{
		Severity: sev,
		Text:     fmt.Sprintf(format, args...),
		Origin:   origin,
	})
}

// Errors returns the error-severity messages.
func (r *Return) Errors() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Severity == SeverityError {
			out = append(out, m)
		}
	}
	return out
}

// Text concatenates the assistant text of the body, used when the caller
// only wants the final answer.
func (r *Return) Text() string {
	var text string
	for _, it := range r.Body {
		if it.Kind == KindAssistant {
			text += it.Text
		}
	}
	return text
}

// LastToolCall returns the last tool-call interaction in the body, or nil.
func (r *Return) LastToolCall() *ToolCall {
	for i := len(r.Body) - 1; i >= 0; i-- {
		if r.Body[i].Kind == KindToolCall {
			return r.Body[i].ToolCall
		}
	}
	return nil
}

// LastToolResult returns the last tool-result interaction in the body, or
// nil.
func (r *Return) LastToolResult() *ToolResult {
	for i := len(r.Body) - 1; i >= 0; i-- {
		if r.Body[i].Kind == KindToolResult {
			return r.Body[i].ToolResult
		}
	}
	return nil
}

// PendingToolCalls returns, in body order, the tool calls that have no
// matching tool result later in the sequence. A non-empty answer means the
// turn is still calling tools.
func PendingToolCalls(body []Interaction) []ToolCall {
	answered := make(map[string]bool)
	for _, it := range body {
		if it.Kind == KindToolResult {
			answered[it.ToolResult.ToolCallID] = true
		}
	}

	var pending []ToolCall
	for _, it := range body {
		if it.Kind == KindToolCall && !answered[it.ToolCall.ID] {
			pending = append(pending, *it.ToolCall)
		}
	}
	return pending
}

// PendingToolCalls reports the unanswered tool calls of this result.
func (r *Return) PendingToolCalls() []ToolCall {
	return PendingToolCalls(r.Body)
}
