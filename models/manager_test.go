package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/architects-toolkit/smarthopper-ai/capability"
)

func seededManager() *Manager {
	m := NewManager()
	m.RegisterCapabilities("openai", "gpt-4o", capability.BasicChat|capability.ImageInput, capability.None)
	m.RegisterCapabilities("openai", "gpt-4o-mini", capability.BasicChat, capability.None)
	m.RegisterCapabilities("openai", "gpt-3.5-turbo", capability.Text2Text, capability.None)
	m.RegisterCapabilities("openai", "gpt-4o*", capability.BasicChat|capability.ImageInput, capability.BasicChat)
	m.RegisterCapabilities("openai", "gpt-3.5*", capability.Text2Text, capability.Text2Text)
	return m
}

// TestManager_ValidateCapabilities_SupersetCheck tests capability containment
func TestManager_ValidateCapabilities_SupersetCheck(t *testing.T) {
	m := seededManager()

	tests := []struct {
		name     string
		provider string
		model    string
		required capability.Capability
		expected bool
	}{
		{"exact capability", "openai", "gpt-3.5-turbo", capability.Text2Text, true},
		{"superset passes", "openai", "gpt-4o", capability.Text2Text, true},
		{"missing flag fails", "openai", "gpt-3.5-turbo", capability.FunctionCalling, false},
		{"unknown model fails", "openai", "gpt-5", capability.Text2Text, false},
		{"unknown provider fails", "mistralai", "gpt-4o", capability.Text2Text, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.ValidateCapabilities(tt.provider, tt.model, tt.required))
		})
	}
}

// TestManager_RetrieveCapabilities_FallsBackToDefaults tests wildcard resolution
func TestManager_RetrieveCapabilities_FallsBackToDefaults(t *testing.T) {
	m := seededManager()

	// Exact registration wins.
	assert.Equal(t, capability.BasicChat, m.RetrieveCapabilities("openai", "gpt-4o-mini"))

	// Unregistered concrete name resolves through the wildcard defaults.
	assert.Equal(t, capability.Capability(capability.BasicChat|capability.ImageInput),
		m.RetrieveCapabilities("openai", "gpt-4o-audio"))

	// Nothing matches.
	assert.Equal(t, capability.None, m.RetrieveCapabilities("openai", "claude-3"))
	assert.Equal(t, capability.None, m.RetrieveCapabilities("nobody", "gpt-4o"))
}

// TestManager_GetDefaultModel_ConcretizesWildcards tests default model selection
func TestManager_GetDefaultModel_ConcretizesWildcards(t *testing.T) {
	m := seededManager()

	// "gpt-4o*" is the first default able to chat; it concretizes to the
	// first registered concrete model with that prefix.
	assert.Equal(t, "gpt-4o", m.GetDefaultModel("openai", capability.BasicChat))
	assert.Equal(t, "gpt-4o", m.GetDefaultModel("openai", capability.Text2Text))

	// No default carries audio.
	assert.Equal(t, "", m.GetDefaultModel("openai", capability.AudioOutput))
	assert.Equal(t, "", m.GetDefaultModel("nobody", capability.Text2Text))
}

// TestManager_GetDefaultModel_NoConcreteMatch tests the prefix fallback
func TestManager_GetDefaultModel_NoConcreteMatch(t *testing.T) {
	m := NewManager()
	m.RegisterCapabilities("openai", "gpt-4*", capability.BasicChat, capability.BasicChat)

	// Only the wildcard entry exists, so the de-wildcarded prefix comes back.
	assert.Equal(t, "gpt-4", m.GetDefaultModel("openai", capability.BasicChat))
}

// TestManager_HasProviderCapabilities_GuardsReinitialization tests the idempotency guard
func TestManager_HasProviderCapabilities_GuardsReinitialization(t *testing.T) {
	m := NewManager()
	assert.False(t, m.HasProviderCapabilities("openai"))

	m.RegisterCapabilities("openai", "gpt-4o", capability.BasicChat, capability.None)
	assert.True(t, m.HasProviderCapabilities("openai"))

	m.Clear("openai")
	assert.False(t, m.HasProviderCapabilities("openai"))
	assert.Empty(t, m.Models("openai"))
}

// TestManager_DefaultFor_ReportsDefaultRegistration tests default-for lookup
func TestManager_DefaultFor_ReportsDefaultRegistration(t *testing.T) {
	m := seededManager()

	assert.Equal(t, capability.Capability(capability.BasicChat), m.DefaultFor("openai", "gpt-4o*"))
	assert.Equal(t, capability.None, m.DefaultFor("openai", "gpt-4o"))
	assert.Equal(t, capability.None, m.DefaultFor("nobody", "gpt-4o*"))
}

// TestManager_Models_RegistrationOrder tests model listing order
func TestManager_Models_RegistrationOrder(t *testing.T) {
	m := seededManager()
	assert.Equal(t,
		[]string{"gpt-4o", "gpt-4o-mini", "gpt-3.5-turbo", "gpt-4o*", "gpt-3.5*"},
		m.Models("openai"))
}
