package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architects-toolkit/smarthopper-ai/capability"
	"github.com/architects-toolkit/smarthopper-ai/interaction"
	"github.com/architects-toolkit/smarthopper-ai/providers"
)

// fakeProvider is a minimal Provider for registry tests.
type fakeProvider struct {
	name        string
	initialized bool
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Initialize(ctx context.Context) error {
	p.initialized = true
	return nil
}

func (p *fakeProvider) DefaultModel(capability.Capability) string { return "fake-model" }

func (p *fakeProvider) SetSetting(key string, value any) {}

func (p *fakeProvider) NewRequest(body []interaction.Interaction, opts providers.CallOptions) (*providers.Request, error) {
	return nil, nil
}

func (p *fakeProvider) Call(ctx context.Context, req *providers.Request) (*interaction.Return, error) {
	return nil, nil
}

func fakeDescriptor(name string) Descriptor {
	return Descriptor{
		Name:    name,
		Factory: func(deps providers.Deps) providers.Provider { return &fakeProvider{name: name} },
	}
}

func trustAll(name string) bool { return true }

// TestManager_Load_PromptsOnFirstEncounter tests the trust prompt flow
func TestManager_Load_PromptsOnFirstEncounter(t *testing.T) {
	var prompted []string
	m := NewManager(Config{
		Prompt: func(name string) bool {
			prompted = append(prompted, name)
			return true
		},
	})

	require.NoError(t, m.Load(context.Background(), fakeDescriptor("openai")))
	assert.Equal(t, []string{"openai"}, prompted)

	// Re-loading an already decided provider does not prompt again.
	require.NoError(t, m.Load(context.Background(), fakeDescriptor("openai")))
	assert.Equal(t, []string{"openai"}, prompted)
}

// TestManager_Load_Headless_DefaultsUntrusted tests the no-prompter default
func TestManager_Load_Headless_DefaultsUntrusted(t *testing.T) {
	m := NewManager(Config{})
	require.NoError(t, m.Load(context.Background(), fakeDescriptor("openai")))

	// Loaded but not resolvable.
	assert.Equal(t, []string{"openai"}, m.Names())
	assert.Nil(t, m.GetProvider("openai"))
	assert.Empty(t, m.ResolvableNames())
}

// TestManager_GetProvider_TrustRecheckedEveryLookup tests live revocation
func TestManager_GetProvider_TrustRecheckedEveryLookup(t *testing.T) {
	m := NewManager(Config{Prompt: trustAll})
	require.NoError(t, m.Load(context.Background(), fakeDescriptor("openai")))
	require.NotNil(t, m.GetProvider("openai"))

	require.NoError(t, m.SetTrusted("openai", false))
	assert.Nil(t, m.GetProvider("openai"))
	assert.Equal(t, []string{"openai"}, m.Names(), "revoked provider stays loaded")

	require.NoError(t, m.SetTrusted("openai", true))
	assert.NotNil(t, m.GetProvider("openai"))
}

// TestManager_GetProvider_DefaultAlias tests Default and empty-name resolution
func TestManager_GetProvider_DefaultAlias(t *testing.T) {
	m := NewManager(Config{Prompt: trustAll})
	require.NoError(t, m.Load(context.Background(), fakeDescriptor("openai")))
	require.NoError(t, m.Load(context.Background(), fakeDescriptor("mistralai")))

	// Unset default falls back to the first loaded provider.
	p := m.GetProvider(DefaultProviderName)
	require.NotNil(t, p)
	assert.Equal(t, "openai", p.Name())

	p = m.GetProvider("")
	require.NotNil(t, p)
	assert.Equal(t, "openai", p.Name())

	m.SetDefault("mistralai")
	p = m.GetProvider(DefaultProviderName)
	require.NotNil(t, p)
	assert.Equal(t, "mistralai", p.Name())
}

// TestManager_GetProvider_UnknownName_Nil tests unknown lookups
func TestManager_GetProvider_UnknownName_Nil(t *testing.T) {
	m := NewManager(Config{Prompt: trustAll})
	assert.Nil(t, m.GetProvider("nonexistent"))
	assert.Nil(t, m.GetProvider(DefaultProviderName))
}

// TestManager_Load_InitializesInBackground tests the async initialize path
func TestManager_Load_InitializesInBackground(t *testing.T) {
	var built *fakeProvider
	m := NewManager(Config{Prompt: trustAll})
	desc := Descriptor{
		Name: "openai",
		Factory: func(deps providers.Deps) providers.Provider {
			built = &fakeProvider{name: "openai"}
			return built
		},
	}
	require.NoError(t, m.Load(context.Background(), desc))
	m.WaitReady()
	require.NotNil(t, built)
	assert.True(t, built.initialized)
}

// TestManager_Load_RejectsIncompleteDescriptors tests descriptor validation
func TestManager_Load_RejectsIncompleteDescriptors(t *testing.T) {
	m := NewManager(Config{Prompt: trustAll})
	assert.Error(t, m.Load(context.Background(), Descriptor{Name: "openai"}))
	assert.Error(t, m.Load(context.Background(), Descriptor{
		Factory: func(deps providers.Deps) providers.Provider { return &fakeProvider{} },
	}))
}

// TestMemoryTrustStore_Records tests the in-memory trust store
func TestMemoryTrustStore_Records(t *testing.T) {
	s := NewMemoryTrustStore()

	_, known, err := s.Trusted("openai")
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, s.SetTrusted("openai", true))
	trusted, known, err := s.Trusted("openai")
	require.NoError(t, err)
	assert.True(t, known)
	assert.True(t, trusted)

	require.NoError(t, s.SetTrusted("openai", false))
	trusted, known, _ = s.Trusted("openai")
	assert.True(t, known)
	assert.False(t, trusted)
}
