// Package orchestrator drives the tool-call loop: send a request, execute
// any tool calls the model asks for, feed the results back, and repeat
// until the model produces a final answer or the iteration limit trips.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/architects-toolkit/smarthopper-ai/capability"
	"github.com/architects-toolkit/smarthopper-ai/interaction"
	"github.com/architects-toolkit/smarthopper-ai/providers"
	"github.com/architects-toolkit/smarthopper-ai/registry"
	"github.com/architects-toolkit/smarthopper-ai/tools"
)

// DefaultMaxIterations bounds the tool-call loop. Without a bound a model
// that keeps requesting tools would recurse forever.
const DefaultMaxIterations = 10

// ErrToolLoopLimit reports that a conversation exceeded the configured
// tool-call iteration limit. It is a distinct error kind, not a silent
// truncation.
var ErrToolLoopLimit = errors.New("tool-call loop exceeded iteration limit")

// Config wires an Orchestrator.
type Config struct {
	Providers *registry.Manager
	Tools     *tools.Registry

	// MaxIterations bounds the tool-call loop (default: 10).
	MaxIterations int

	Logger *log.Logger
}

// Orchestrator mediates the request, tool-call, tool-result, follow-up
// cycle between a provider and the local tool registry.
type Orchestrator struct {
	providers *registry.Manager
	tools     *tools.Registry
	maxIter   int
	logger    *log.Logger
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	return &Orchestrator{
		providers: cfg.Providers,
		tools:     cfg.Tools,
		maxIter:   maxIter,
		logger:    cfg.Logger,
	}
}

// CallOptions shape one orchestrated conversation.
type CallOptions struct {
	// Provider names the provider, or registry.DefaultProviderName.
	Provider string

	// Model overrides model selection.
	Model string

	// Required is the capability set the conversation needs.
	Required capability.Capability

	// ToolFilter restricts which registered tools the model sees, using
	// +include / -exclude tokens. Empty exposes everything.
	ToolFilter string
}

// Complete runs one conversation to completion. The provider's response
// body is appended to history each turn; when it contains pending tool
// calls they are executed in order, the results appended, and the
// provider re-invoked. Ordinary failures come back inside the Return;
// only programmer errors, cancellation, and the iteration limit return a
// Go error alongside it.
func (o *Orchestrator) Complete(ctx context.Context, history []interaction.Interaction, opts CallOptions) (*interaction.Return, error) {
	ret, _, err := o.run(ctx, history, opts)
	return ret, err
}

// run is Complete plus the accumulated conversation history, which
// tool-oriented callers search for the authoritative tool result.
func (o *Orchestrator) run(ctx context.Context, history []interaction.Interaction, opts CallOptions) (*interaction.Return, []interaction.Interaction, error) {
	provider := o.providers.GetProvider(opts.Provider)
	if provider == nil {
		return interaction.NewErrorReturn("orchestrator",
			"provider %q is unknown or not trusted", opts.Provider), history, nil
	}

	exposed := o.exposedTools(opts.ToolFilter)

	for iteration := 0; iteration < o.maxIter; iteration++ {
		if err := ctx.Err(); err != nil {
			return interaction.NewErrorReturn("orchestrator", "call canceled: %v", err), history, err
		}

		req, err := provider.NewRequest(history, providers.CallOptions{
			Model:      opts.Model,
			Required:   opts.Required,
			Tools:      exposed,
			ToolFilter: opts.ToolFilter,
		})
		if err != nil {
			return interaction.NewErrorReturn(provider.Name(), "building request: %v", err), history, nil
		}

		ret, err := provider.Call(ctx, req)
		if err != nil {
			return nil, history, err
		}
		if !ret.Success {
			return ret, history, nil
		}

		history = append(history, ret.Body...)

		pending := ret.PendingToolCalls()
		if len(pending) == 0 {
			return ret, history, nil
		}

		o.logf("turn %d requested %d tool call(s)", iteration+1, len(pending))
		for _, call := range pending {
			history = append(history, o.runToolCall(ctx, call))
		}
	}

	ret := interaction.NewErrorReturn("orchestrator",
		"conversation exceeded %d tool-call iterations", o.maxIter)
	ret.Body = history
	return ret, history, fmt.Errorf("%w (%d)", ErrToolLoopLimit, o.maxIter)
}

// runToolCall executes one tool call and wraps its JSON result as a
// tool-result interaction. Tool failures are results too; they go back to
// the model rather than aborting the conversation.
func (o *Orchestrator) runToolCall(ctx context.Context, call interaction.ToolCall) interaction.Interaction {
	result := o.tools.Execute(ctx, call.Name, call.Arguments, nil)
	payload, err := json.Marshal(result)
	if err != nil {
		payload, _ = json.Marshal(tools.Failure(call.Name, "encoding tool result: %v", err))
	}
	return interaction.NewToolResult(call.ID, call.Name, payload)
}

// exposedTools converts the filtered registry contents into wire specs.
func (o *Orchestrator) exposedTools(filter string) []providers.ToolSpec {
	var specs []providers.ToolSpec
	for _, t := range tools.ParseFilter(filter).Apply(o.tools) {
		specs = append(specs, providers.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Schema:      t.Schema,
		})
	}
	return specs
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.logger != nil {
		o.logger.Printf("[orchestrator] "+format, args...)
	}
}
