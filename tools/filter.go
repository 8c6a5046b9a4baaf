package tools

import "strings"

// Filter restricts which tools are exposed to a given AI call, e.g. to
// keep a tool from invoking itself recursively. Tokens match tool names
// and categories alike; exclusion always wins.
type Filter struct {
	includes map[string]bool
	excludes map[string]bool
}

// ParseFilter parses a filter expression: whitespace- or comma-separated
// tokens, "+tok" or bare "tok" to include, "-tok" to exclude, "*" or the
// empty expression to allow everything not excluded.
func ParseFilter(expr string) Filter {
	f := Filter{
		includes: make(map[string]bool),
		excludes: make(map[string]bool),
	}

	for _, token := range strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}) {
		switch {
		case token == "*" || token == "+*":
			// Wildcard include adds nothing beyond the default.
		case strings.HasPrefix(token, "-"):
			f.excludes[strings.TrimPrefix(token, "-")] = true
		case strings.HasPrefix(token, "+"):
			f.includes[strings.TrimPrefix(token, "+")] = true
		default:
			f.includes[token] = true
		}
	}
	return f
}

// Allows reports whether the filter exposes a tool. With no include
// tokens every non-excluded tool passes; otherwise the tool's name or
// category must be included.
func (f Filter) Allows(t Tool) bool {
	if f.excludes[t.Name] || f.excludes[t.Category] {
		return false
	}
	if len(f.includes) == 0 {
		return true
	}
	return f.includes[t.Name] || f.includes[t.Category]
}

// Apply returns the tools of reg that pass the filter, in registration
// order.
func (f Filter) Apply(reg *Registry) []Tool {
	var out []Tool
	for _, t := range reg.List() {
		if f.Allows(t) {
			out = append(out, t)
		}
	}
	return out
}
