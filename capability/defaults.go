package capability

import "strings"

// DefaultSet maps model names, possibly wildcarded (e.g. "gpt-4*"), to the
// capability set they are a default for. Entries keep insertion order:
// resolution is first match, not best match.
type DefaultSet struct {
	order   []string
	entries map[string]Capability
}

// NewDefaultSet creates an empty default set.
func NewDefaultSet() *DefaultSet {
	return &DefaultSet{entries: make(map[string]Capability)}
}

// Register adds or replaces a default entry. Re-registering an existing
// model keeps its original position in the search order.
func (s *DefaultSet) Register(model string, caps Capability) {
	if _, exists := s.entries[model]; !exists {
		s.order = append(s.order, model)
	}
	s.entries[model] = caps
}

// Len returns the number of registered entries.
func (s *DefaultSet) Len() int {
	return len(s.order)
}

// Models returns the registered model names in insertion order.
func (s *DefaultSet) Models() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Lookup returns the capability set registered for an exact model name.
func (s *DefaultSet) Lookup(model string) (Capability, bool) {
	caps, ok := s.entries[model]
	return caps, ok
}

// Resolve maps a model name, possibly containing a "*" wildcard, to the
// capability set of the first matching entry:
//
//  1. exact match on the name;
//  2. if the name contains a wildcard, the first entry whose key starts
//     with the de-wildcarded prefix;
//  3. if the name has no wildcard, the first wildcard entry whose
//     de-wildcarded prefix matches the name;
//  4. otherwise None.
//
// The scan follows insertion order, so the result is the first structural
// match rather than the most specific one.
func (s *DefaultSet) Resolve(model string) Capability {
	if caps, ok := s.entries[model]; ok {
		return caps
	}

	if strings.Contains(model, "*") {
		prefix := dewildcard(model)
		for _, key := range s.order {
			if strings.HasPrefix(key, prefix) {
				return s.entries[key]
			}
		}
		return None
	}

	for _, key := range s.order {
		if !strings.Contains(key, "*") {
			continue
		}
		if strings.HasPrefix(model, dewildcard(key)) {
			return s.entries[key]
		}
	}
	return None
}

// ResolveModel returns the first entry, in insertion order, whose
// capability set contains required. The returned name may be wildcarded.
func (s *DefaultSet) ResolveModel(required Capability) (string, bool) {
	for _, key := range s.order {
		if s.entries[key].Has(required) {
			return key, true
		}
	}
	return "", false
}

// dewildcard truncates a pattern at its first wildcard.
func dewildcard(pattern string) string {
	if i := strings.Index(pattern, "*"); i >= 0 {
		return pattern[:i]
	}
	return pattern
}
