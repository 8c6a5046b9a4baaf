package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/architects-toolkit/smarthopper-ai/capability"
	"github.com/architects-toolkit/smarthopper-ai/interaction"
	"github.com/architects-toolkit/smarthopper-ai/internal/httpx"
	"github.com/architects-toolkit/smarthopper-ai/models"
	"github.com/architects-toolkit/smarthopper-ai/sse"
)

// codec is the provider-specific half of the pipeline: wire encoding and
// decoding. Concrete providers implement it and embed Base for the rest.
type codec interface {
	encode(body []interaction.Interaction, opts CallOptions) ([]byte, error)
	decode(payload []byte) ([]interaction.Interaction, interaction.Metrics, error)
	chatEndpoint(serverURL string) string
}

// Base implements the shared call pipeline: PreCall validation, the HTTP
// exchange with timing, and PostCall classification. It also owns the
// settings fallback chain (per-instance override, provider default, zero
// value) and model selection.
type Base struct {
	name      string
	serverURL string
	codec     codec
	client    *httpx.Client
	stream    *http.Client
	models    *models.Manager
	logger    *log.Logger

	mu        sync.RWMutex
	overrides map[string]any
	defaults  map[string]any
}

// NewBase wires the shared pipeline for a concrete provider. defaults are
// the provider-level settings the instance overrides shadow.
func NewBase(name, serverURL string, c codec, deps Deps, defaults map[string]any) *Base {
	overrides := deps.Settings
	if overrides == nil {
		overrides = make(map[string]any)
	}
	if defaults == nil {
		defaults = make(map[string]any)
	}
	return &Base{
		name:      name,
		serverURL: serverURL,
		codec:     c,
		client:    httpx.NewClient(deps.HTTP),
		// Streaming responses outlive any sane per-request timeout, so
		// they go through a client without one; cancellation comes from
		// the context and the SSE idle timeout.
		stream:    &http.Client{},
		models:    deps.Models,
		logger:    deps.Logger,
		overrides: overrides,
		defaults:  defaults,
	}
}

// Name returns the provider's registry key.
func (b *Base) Name() string { return b.name }

func (b *Base) logf(format string, args ...any) {
	if b.logger != nil {
		b.logger.Printf("["+b.name+"] "+format, args...)
	}
}

// Models exposes the shared capability registry to concrete providers.
func (b *Base) Models() *models.Manager { return b.models }

// ServerURL resolves the API base URL, honoring an "endpoint" setting.
func (b *Base) ServerURL() string {
	if ep := Setting[string](b, "endpoint"); ep != "" {
		return strings.TrimSuffix(ep, "/")
	}
	return b.serverURL
}

// SetSetting stores a per-instance override. Last write wins.
func (b *Base) SetSetting(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[key] = value
}

// Setting resolves a typed setting: instance override first, then the
// provider default, then the zero value. It never fails on a missing key.
func Setting[T any](b *Base, key string) T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if v, ok := b.overrides[key]; ok {
		if t, ok := v.(T); ok {
			return t
		}
	}
	if v, ok := b.defaults[key]; ok {
		if t, ok := v.(T); ok {
			return t
		}
	}
	var zero T
	return zero
}

// authScheme resolves the configured auth scheme, defaulting to bearer.
func (b *Base) authScheme() AuthScheme {
	if s := Setting[string](b, "auth_scheme"); s != "" {
		return AuthScheme(s)
	}
	return AuthBearer
}

// DefaultModel prefers the user-configured model if it satisfies the
// required capability, then the registry's capability-appropriate default.
// Before capability registration finishes it degrades to the configured
// model unvalidated. Empty means no provider-suitable model exists.
func (b *Base) DefaultModel(required capability.Capability) string {
	configured := Setting[string](b, "model")
	if !b.models.HasProviderCapabilities(b.name) {
		return configured
	}
	if configured != "" && b.models.ValidateCapabilities(b.name, configured, required) {
		return configured
	}
	return b.models.GetDefaultModel(b.name, required)
}

// NewRequest encodes a conversation into this provider's wire format. The
// model may come back empty when no suitable one exists; validation then
// fails the call before any network activity.
func (b *Base) NewRequest(body []interaction.Interaction, opts CallOptions) (*Request, error) {
	model := opts.Model
	if model == "" {
		model = b.DefaultModel(opts.Required)
	}
	opts.Model = model

	payload, err := b.codec.encode(body, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", b.name, err)
	}

	return &Request{
		Endpoint:    b.codec.chatEndpoint(b.ServerURL()),
		Method:      http.MethodPost,
		Body:        payload,
		ContentType: "application/json",
		Auth:        b.authScheme(),
		APIKey:      Setting[string](b, "api_key"),
		Model:       model,
		ToolFilter:  opts.ToolFilter,
		Stream:      opts.Stream,
	}, nil
}

// Call runs the pipeline: validate, dispatch, attach metrics, classify.
// Ordinary failures come back as a failed Return with the provider, model,
// and raw error text preserved; only programmer errors return an error.
func (b *Base) Call(ctx context.Context, req *Request) (*interaction.Return, error) {
	ret := interaction.NewReturn()
	ret.Metrics.Provider = b.name
	ret.Metrics.Model = req.Model

	httpReq, err := b.preCall(ctx, req, ret)
	if err != nil {
		return nil, err
	}
	if httpReq == nil {
		return ret, nil
	}

	payload, ok := b.callAPI(httpReq, req, ret)
	if !ok {
		return ret, nil
	}

	body, metrics, err := b.codec.decode(payload)
	if err != nil {
		ret.Fail(b.name, "failed to decode %s response for model %s: %v", b.name, req.Model, err)
		return ret, nil
	}
	ret.Body = body
	ret.Metrics.InputTokens = metrics.InputTokens
	ret.Metrics.OutputTokens = metrics.OutputTokens
	ret.Metrics.FinishReason = metrics.FinishReason

	b.postCall(ret)
	return ret, nil
}

// preCall validates the request and prepares the HTTP request. A nil
// request with nil error means validation failed recoverably and ret
// already carries the failure.
func (b *Base) preCall(ctx context.Context, req *Request, ret *interaction.Return) (*http.Request, error) {
	if err := req.Validate(); err != nil {
		if IsProgrammerError(err) {
			return nil, err
		}
		ret.Fail(b.name, "invalid request: %v", err)
		return nil, nil
	}
	if req.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, b.name)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.Endpoint, bytes.NewReader(req.Body))
	if err != nil {
		ret.Fail(b.name, "invalid request: %v", err)
		return nil, nil
	}
	applyHeaders(httpReq, req)
	return httpReq, nil
}

// callAPI performs the HTTP exchange, attaches timing, and reads the
// response body. Network and HTTP-status failures are recorded on ret.
func (b *Base) callAPI(httpReq *http.Request, req *Request, ret *interaction.Return) ([]byte, bool) {
	start := time.Now()
	resp, err := b.client.Do(httpReq)
	ret.Metrics.CompletionTime = time.Since(start)
	if err != nil {
		ret.Fail(b.name, "request to %s failed: %v", b.name, err)
		return nil, false
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	ret.Metrics.CompletionTime = time.Since(start)
	if err != nil {
		ret.Fail(b.name, "reading %s response: %v", b.name, err)
		return nil, false
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ret.Fail(b.name, "%s returned HTTP %d for model %s: %s",
			b.name, resp.StatusCode, req.Model, strings.TrimSpace(string(payload)))
		return nil, false
	}

	ret.Success = true
	return payload, true
}

// postCall classifies the decoded body: pending tool calls mean the turn
// is still calling tools, otherwise it completed.
func (b *Base) postCall(ret *interaction.Return) {
	if len(ret.PendingToolCalls()) > 0 {
		ret.Status = interaction.StatusCallingTools
		return
	}
	ret.Status = interaction.StatusCompleted
	if ret.Metrics.FinishReason == "" {
		ret.Metrics.FinishReason = "stop"
	}
}

// OpenStream dispatches a streaming request and hands back a lazy SSE
// payload sequence. Validation and auth follow the same rules as Call;
// the response stays open until the reader finishes or ctx is canceled.
func (b *Base) OpenStream(ctx context.Context, req *Request, opts sse.Options) (*sse.Reader, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, b.name)
	}

	req.Stream = true
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.Endpoint, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	applyHeaders(httpReq, req)

	resp, err := b.stream.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: opening stream: %w", b.name, err)
	}
	return sse.New(ctx, resp, opts)
}

func applyHeaders(httpReq *http.Request, req *Request) {
	switch req.Auth {
	case AuthBearer:
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	case AuthAPIKey:
		httpReq.Header.Set("x-api-key", req.APIKey)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Cache-Control", "no-cache")
	}
}
