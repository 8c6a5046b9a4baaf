// Package providers defines the AI provider abstraction: a uniform
// interface over heterogeneous chat APIs, a shared call pipeline with
// validation and metrics, and concrete OpenAI and Mistral integrations.
// Providers are swappable structural variants: same interface, different
// wire encodings.
package providers

import (
	"context"
	"log"

	"github.com/architects-toolkit/smarthopper-ai/capability"
	"github.com/architects-toolkit/smarthopper-ai/interaction"
	"github.com/architects-toolkit/smarthopper-ai/internal/httpx"
	"github.com/architects-toolkit/smarthopper-ai/models"
)

// ToolSpec is a tool definition exposed to the model on the wire.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// CallOptions shape one outgoing request.
type CallOptions struct {
	// Model overrides model selection. Empty means DefaultModel(Required).
	Model string

	// Required is the capability set the request needs from the model.
	Required capability.Capability

	// Tools are the tool definitions exposed for this call, already
	// filtered by the caller.
	Tools []ToolSpec

	// ToolFilter is carried on the request for downstream bookkeeping.
	ToolFilter string

	// Stream requests an SSE response.
	Stream bool
}

// Provider is the contract every AI integration implements. Call never
// returns an error for ordinary API or validation failures; those come
// back as a failed Return. Only programmer errors (unsupported method or
// auth scheme, missing configuration) surface as returned errors.
type Provider interface {
	// Name is the registry key for this provider.
	Name() string

	// Initialize registers the provider's model capabilities. It is a
	// no-op once capabilities are present, so re-initialization does not
	// repeat model-list calls.
	Initialize(ctx context.Context) error

	// NewRequest encodes a conversation into this provider's wire format.
	NewRequest(body []interaction.Interaction, opts CallOptions) (*Request, error)

	// Call validates, dispatches, and decodes one request.
	Call(ctx context.Context, req *Request) (*interaction.Return, error)

	// DefaultModel resolves the model to use for the required capability
	// set. Empty means no suitable model; callers fail the request rather
	// than substitute one.
	DefaultModel(required capability.Capability) string

	// SetSetting stores a per-instance setting override.
	SetSetting(key string, value any)
}

// Factory constructs a provider from its dependencies.
type Factory func(deps Deps) Provider

// Deps carries the shared services a provider needs.
type Deps struct {
	// Models is the capability registry shared across providers.
	Models *models.Manager

	// HTTP configures the underlying transport; the zero value means a
	// single attempt with default pooling.
	HTTP httpx.Config

	// Settings are per-instance overrides (api_key, endpoint, model,
	// auth_scheme, ...). They shadow provider-level defaults.
	Settings map[string]any

	// Logger is optional.
	Logger *log.Logger
}

var factoryOrder []string
var factories = make(map[string]Factory)

// RegisterFactory registers a provider factory under its name. Providers
// register themselves in init; registration order is preserved for
// "first available" default resolution.
func RegisterFactory(name string, factory Factory) {
	if _, exists := factories[name]; !exists {
		factoryOrder = append(factoryOrder, name)
	}
	factories[name] = factory
}

// GetFactory returns a registered factory by name.
func GetFactory(name string) (Factory, bool) {
	f, ok := factories[name]
	return f, ok
}

// ListFactories returns registered factory names in registration order.
func ListFactories() []string {
	out := make([]string, len(factoryOrder))
	copy(out, factoryOrder)
	return out
}
