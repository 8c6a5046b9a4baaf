// Package registry resolves AI providers by name behind a verification
// and trust gate. Provider entry points are compile-time descriptors
// rather than reflected plugin assemblies, but the pre-load pipeline is
// the same: verify the artifact hash against the published manifest, ask
// the user for trust on first encounter, and re-check trust on every
// lookup so revocation takes effect immediately.
package registry

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/architects-toolkit/smarthopper-ai/providers"
)

// DefaultProviderName is the alias callers use to mean "whatever provider
// is configured as the default".
const DefaultProviderName = "Default"

// Descriptor declares one provider to the manager: its registry name, the
// factory constructing it, and optionally the artifact to hash-verify.
type Descriptor struct {
	Name         string
	Factory      providers.Factory
	Deps         providers.Deps
	ArtifactPath string
}

// TrustStore persists per-provider trust decisions.
type TrustStore interface {
	// Trusted reports the stored decision. known is false when the
	// provider has never been decided on.
	Trusted(name string) (trusted, known bool, err error)

	// SetTrusted records a decision.
	SetTrusted(name string, trusted bool) error
}

// Prompter asks the user whether to trust a newly encountered provider.
type Prompter func(name string) bool

// ErrVerificationFailed marks a provider refused because its artifact
// hash explicitly mismatched the manifest.
var ErrVerificationFailed = fmt.Errorf("provider artifact failed hash verification")

// Config wires a Manager.
type Config struct {
	Trust  TrustStore
	Prompt Prompter

	// ManifestURL is the HTTPS base path of the public hash manifest.
	// Empty disables artifact verification (every artifact is Unknown).
	ManifestURL string

	// ManifestVersion selects "{version}.json"; empty uses latest.json.
	ManifestVersion string

	HTTPClient *http.Client
	Logger     *log.Logger
}

// Manager is the provider registry. Loaded providers stay registered even
// when untrusted; trust is enforced at lookup time.
type Manager struct {
	mu          sync.RWMutex
	order       []string
	loaded      map[string]providers.Provider
	defaultName string

	trust    TrustStore
	prompt   Prompter
	manifest *manifest
	cfg      Config
	initWG   sync.WaitGroup
}

// NewManager creates a provider registry.
func NewManager(cfg Config) *Manager {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Trust == nil {
		cfg.Trust = NewMemoryTrustStore()
	}
	return &Manager{
		loaded: make(map[string]providers.Provider),
		trust:  cfg.Trust,
		prompt: cfg.Prompt,
		cfg:    cfg,
	}
}

// Load verifies, trust-gates, constructs, and registers one provider.
// A hash mismatch is a hard security failure; a missing manifest entry
// only warns. Initialization runs as a background task: callers invoking
// Call before it completes degrade to un-validated model selection.
func (m *Manager) Load(ctx context.Context, d Descriptor) error {
	if d.Name == "" || d.Factory == nil {
		return fmt.Errorf("provider descriptor needs a name and a factory")
	}

	switch m.verify(ctx, d) {
	case VerifyMismatch:
		m.logf("SECURITY: refusing provider %s, artifact hash mismatch", d.Name)
		return fmt.Errorf("%w: %s", ErrVerificationFailed, d.Name)
	case VerifyUnknown:
		if d.ArtifactPath != "" {
			m.logf("provider %s has no verifiable hash, loading anyway", d.Name)
		}
	}

	if err := m.ensureTrustDecision(d.Name); err != nil {
		return err
	}

	provider := d.Factory(d.Deps)

	m.mu.Lock()
	if _, exists := m.loaded[d.Name]; !exists {
		m.order = append(m.order, d.Name)
	}
	m.loaded[d.Name] = provider
	m.mu.Unlock()

	m.initWG.Add(1)
	go func() {
		defer m.initWG.Done()
		if err := provider.Initialize(ctx); err != nil {
			m.logf("provider %s initialization failed: %v", d.Name, err)
		}
	}()
	return nil
}

// WaitReady blocks until all background provider initializations finish.
// Tests and the CLI use it; the host never has to.
func (m *Manager) WaitReady() {
	m.initWG.Wait()
}

// GetProvider resolves a provider by name. The DefaultProviderName alias
// maps to the configured default, or the first loaded provider when
// unset. Unknown and currently untrusted names answer nil, never an
// error: trust is re-checked on every lookup, so revoking a provider
// makes it unresolvable even though it stays loaded.
func (m *Manager) GetProvider(name string) providers.Provider {
	m.mu.RLock()
	if name == DefaultProviderName || name == "" {
		name = m.defaultName
		if name == "" && len(m.order) > 0 {
			name = m.order[0]
		}
	}
	provider, ok := m.loaded[name]
	m.mu.RUnlock()

	if !ok {
		return nil
	}
	trusted, known, err := m.trust.Trusted(name)
	if err != nil || !known || !trusted {
		return nil
	}
	return provider
}

// SetDefault configures which provider the Default alias resolves to.
func (m *Manager) SetDefault(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = name
}

// SetTrusted records a trust decision, taking effect on the next lookup.
func (m *Manager) SetTrusted(name string, trusted bool) error {
	return m.trust.SetTrusted(name, trusted)
}

// Names returns all loaded provider names in load order, trusted or not.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// ResolvableNames returns the loaded providers that currently pass the
// trust gate.
func (m *Manager) ResolvableNames() []string {
	var out []string
	for _, name := range m.Names() {
		if m.GetProvider(name) != nil {
			out = append(out, name)
		}
	}
	return out
}

// ensureTrustDecision prompts on first encounter and persists the answer.
// Without a prompter a new provider defaults to untrusted, which keeps
// headless runs safe.
func (m *Manager) ensureTrustDecision(name string) error {
	_, known, err := m.trust.Trusted(name)
	if err != nil {
		return fmt.Errorf("reading trust record for %s: %w", name, err)
	}
	if known {
		return nil
	}

	trusted := false
	if m.prompt != nil {
		trusted = m.prompt(name)
	}
	if err := m.trust.SetTrusted(name, trusted); err != nil {
		return fmt.Errorf("persisting trust record for %s: %w", name, err)
	}
	return nil
}

// verify lazily fetches the manifest and checks the descriptor artifact.
func (m *Manager) verify(ctx context.Context, d Descriptor) Verification {
	if d.ArtifactPath == "" || m.cfg.ManifestURL == "" {
		return VerifyUnknown
	}

	m.mu.Lock()
	if m.manifest == nil {
		doc, err := fetchManifest(ctx, m.cfg.HTTPClient, m.cfg.ManifestURL, m.cfg.ManifestVersion)
		if err != nil {
			m.logf("hash manifest unavailable: %v", err)
			doc = &manifest{}
		}
		m.manifest = doc
	}
	doc := m.manifest
	m.mu.Unlock()

	return verifyArtifact(doc, d.Name, d.ArtifactPath)
}

func (m *Manager) logf(format string, args ...any) {
	if m.cfg.Logger != nil {
		m.cfg.Logger.Printf("[registry] "+format, args...)
	}
}

// MemoryTrustStore is an in-process TrustStore for tests and ephemeral
// runs.
type MemoryTrustStore struct {
	mu      sync.RWMutex
	records map[string]bool
}

// NewMemoryTrustStore creates an empty in-memory trust store.
func NewMemoryTrustStore() *MemoryTrustStore {
	return &MemoryTrustStore{records: make(map[string]bool)}
}

// Trusted implements TrustStore.
func (s *MemoryTrustStore) Trusted(name string) (bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trusted, known := s.records[name]
	return trusted, known, nil
}

// SetTrusted implements TrustStore.
func (s *MemoryTrustStore) SetTrusted(name string, trusted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[name] = trusted
	return nil
}
