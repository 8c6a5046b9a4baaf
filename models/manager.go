// Package models maintains the (provider, model) capability registry and
// per-provider default models. The manager is constructed explicitly and
// injected; there is no package-level singleton.
package models

import (
	"sync"

	"github.com/architects-toolkit/smarthopper-ai/capability"
)

// Manager is a read-mostly registry of model capabilities. Registration is
// idempotent per provider: once HasProviderCapabilities reports true,
// initialization code can skip re-fetching model lists.
type Manager struct {
	mu       sync.RWMutex
	caps     map[string]map[string]capability.Capability
	defaults map[string]*capability.DefaultSet
	order    map[string][]string
}

// NewManager creates an empty capability registry.
func NewManager() *Manager {
	return &Manager{
		caps:     make(map[string]map[string]capability.Capability),
		defaults: make(map[string]*capability.DefaultSet),
		order:    make(map[string][]string),
	}
}

// RegisterCapabilities records what a model supports and, when defaultFor
// is not None, marks it as the provider default for that capability set.
// Registering the same model again overwrites its capability set but keeps
// its position in the default search order.
func (m *Manager) RegisterCapabilities(provider, model string, caps, defaultFor capability.Capability) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byModel, ok := m.caps[provider]
	if !ok {
		byModel = make(map[string]capability.Capability)
		m.caps[provider] = byModel
	}
	if _, exists := byModel[model]; !exists {
		m.order[provider] = append(m.order[provider], model)
	}
	byModel[model] = caps

	if defaultFor != capability.None {
		ds, ok := m.defaults[provider]
		if !ok {
			ds = capability.NewDefaultSet()
			m.defaults[provider] = ds
		}
		ds.Register(model, defaultFor)
	}
}

// HasProviderCapabilities reports whether any model is registered for the
// provider. Providers use this as an idempotency guard to avoid redundant
// model-list calls.
func (m *Manager) HasProviderCapabilities(provider string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.caps[provider]) > 0
}

// Clear removes a provider's registrations so it can be re-initialized.
func (m *Manager) Clear(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.caps, provider)
	delete(m.defaults, provider)
	delete(m.order, provider)
}

// ValidateCapabilities reports whether the registered capability set of
// (provider, model) is a superset of required. Unknown provider or model
// answers false; callers handle absence, not errors.
func (m *Manager) ValidateCapabilities(provider, model string, required capability.Capability) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byModel, ok := m.caps[provider]
	if !ok {
		return false
	}
	caps, ok := byModel[model]
	if !ok {
		return false
	}
	return caps.Has(required)
}

// RetrieveCapabilities resolves a model name, possibly wildcarded, to a
// concrete capability set: exact registration first, then the provider's
// defaults with first-match wildcard resolution, then None.
func (m *Manager) RetrieveCapabilities(provider, model string) capability.Capability {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if byModel, ok := m.caps[provider]; ok {
		if caps, ok := byModel[model]; ok {
			return caps
		}
	}
	if ds, ok := m.defaults[provider]; ok {
		return ds.Resolve(model)
	}
	return capability.None
}

// GetDefaultModel returns the first default model, in registration order,
// whose default-for capability set contains required. A wildcard default
// resolves to the first concrete registered model matching its prefix.
// The empty string means no suitable default exists; callers must fail
// the request rather than substitute an arbitrary model.
func (m *Manager) GetDefaultModel(provider string, required capability.Capability) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.defaults[provider]
	if !ok {
		return ""
	}
	name, ok := ds.ResolveModel(required)
	if !ok {
		return ""
	}
	return m.concretize(provider, name)
}

// DefaultFor returns the capability set a model was registered as a
// default for, None when it is not a default.
func (m *Manager) DefaultFor(provider, model string) capability.Capability {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ds, ok := m.defaults[provider]; ok {
		if caps, ok := ds.Lookup(model); ok {
			return caps
		}
	}
	return capability.None
}

// Models returns the registered model names of a provider, in registration
// order.
func (m *Manager) Models(provider string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order[provider]))
	copy(out, m.order[provider])
	return out
}

// concretize maps a possibly wildcarded default name to a registered
// concrete model. Callers hold at least a read lock.
func (m *Manager) concretize(provider, name string) string {
	i := indexOfWildcard(name)
	if i < 0 {
		return name
	}
	prefix := name[:i]
	for _, model := range m.order[provider] {
		if indexOfWildcard(model) >= 0 {
			continue
		}
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
			return model
		}
	}
	// No concrete match registered yet; hand back the prefix so the
	// provider can still address a model family endpoint.
	return prefix
}

func indexOfWildcard(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '*' {
			return i
		}
	}
	return -1
}
