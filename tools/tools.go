// Package tools is the registry of named operations the AI may request.
// Execution is by exact name; failures come back as structured results
// with a severity-tagged messages array, never as exceptions crossing the
// dispatch boundary.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/architects-toolkit/smarthopper-ai/interaction"
)

// Handler implements a tool. args are the decoded JSON arguments, extra is
// optional caller-supplied context; both may be nil. A returned error is
// normalized into an error result by Execute.
type Handler func(ctx context.Context, args map[string]any, extra map[string]any) (map[string]any, error)

// Tool describes one registered operation.
type Tool struct {
	Name        string
	Category    string
	Description string
	Schema      map[string]any
	Handler     Handler
}

// Registry holds the registered tools. Names are unique; lookup is by
// exact name only.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Empty names, missing handlers, and duplicate names
// are rejected.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.order = append(r.order, t.Name)
	r.tools[t.Name] = t
	return nil
}

// Get retrieves a tool by exact name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Execute looks up a tool by exact name and runs it. Unknown names,
// malformed arguments, and handler errors all yield a structured failure
// result; the caller scans the messages array, not an error value.
func (r *Registry) Execute(ctx context.Context, name string, arguments, extra json.RawMessage) map[string]any {
	tool, ok := r.Get(name)
	if !ok {
		return Failure(name, "tool %q is not registered", name)
	}

	args, err := decodeObject(arguments)
	if err != nil {
		return Failure(name, "invalid tool arguments: %v", err)
	}
	extraArgs, err := decodeObject(extra)
	if err != nil {
		return Failure(name, "invalid tool context: %v", err)
	}

	result, err := tool.Handler(ctx, args, extraArgs)
	if err != nil {
		return Failure(name, "%v", err)
	}
	if result == nil {
		result = map[string]any{}
	}
	if _, ok := result["success"]; !ok {
		result["success"] = true
	}
	return result
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Failure builds an error result with a single severity-tagged message.
func Failure(origin, format string, args ...any) map[string]any {
	return map[string]any{
		"success": false,
		"messages": []interaction.Message{{
			Severity: interaction.SeverityError,
			Text:     fmt.Sprintf(format, args...),
			Origin:   origin,
		}},
	}
}

// Succeeded reports whether a tool result signals success.
func Succeeded(result map[string]any) bool {
	ok, _ := result["success"].(bool)
	return ok
}
