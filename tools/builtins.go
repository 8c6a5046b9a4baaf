package tools

import "context"

// RegisterBuiltins adds the introspection tools. providerNames supplies
// the currently resolvable provider names; it may be nil. Both tools sit
// in the "introspection" category so a tool filter can exclude them as a
// group.
func RegisterBuiltins(r *Registry, providerNames func() []string) error {
	listTools := Tool{
		Name:        "list_tools",
		Category:    "introspection",
		Description: "Lists the tools currently available, with category and description",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args, extra map[string]any) (map[string]any, error) {
			var listed []map[string]any
			for _, t := range r.List() {
				listed = append(listed, map[string]any{
					"name":        t.Name,
					"category":    t.Category,
					"description": t.Description,
				})
			}
			return map[string]any{"tools": listed}, nil
		},
	}
	if err := r.Register(listTools); err != nil {
		return err
	}

	return r.Register(Tool{
		Name:        "list_providers",
		Category:    "introspection",
		Description: "Lists the AI providers currently resolvable by name",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args, extra map[string]any) (map[string]any, error) {
			var names []string
			if providerNames != nil {
				names = providerNames()
			}
			return map[string]any{"providers": names}, nil
		},
	})
}
