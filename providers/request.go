package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthScheme selects how the API key is attached to a request. Only the
// bearer and x-api-key header schemes are supported; anything else is a
// configuration error raised at request time, not at network time.
type AuthScheme string

const (
	AuthBearer AuthScheme = "bearer"
	AuthAPIKey AuthScheme = "x-api-key"
)

// Programmer-error sentinels. These escape Call as returned errors because
// they indicate misconfiguration, not runtime failure.
var (
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")
	ErrUnsupportedAuth   = errors.New("unsupported authentication scheme")
	ErrMissingAPIKey     = errors.New("no API key configured")
)

// ErrInvalidRequest marks recoverable validation failures: the caller can
// correct the request and retry. Call converts these into a failed Return
// without issuing a network call.
var ErrInvalidRequest = errors.New("invalid request")

var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// Request is the provider-agnostic request descriptor: fully encoded body,
// target endpoint, and transport details. Providers build these in
// NewRequest and the base pipeline dispatches them.
type Request struct {
	Endpoint    string
	Method      string
	Body        []byte
	ContentType string
	Auth        AuthScheme
	APIKey      string
	Model       string
	ToolFilter  string
	Stream      bool
}

// Validate checks the request before any network activity. Unsupported
// methods and auth schemes wrap the programmer-error sentinels; missing
// endpoint or model wraps ErrInvalidRequest.
func (r *Request) Validate() error {
	if !supportedMethods[r.Method] {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, r.Method)
	}
	switch r.Auth {
	case AuthBearer, AuthAPIKey:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAuth, r.Auth)
	}
	if r.Endpoint == "" {
		return fmt.Errorf("%w: empty endpoint", ErrInvalidRequest)
	}
	if r.Model == "" {
		return fmt.Errorf("%w: no model selected", ErrInvalidRequest)
	}
	return nil
}

// IsProgrammerError reports whether err should escape the Call boundary
// instead of becoming a failed Return.
func IsProgrammerError(err error) bool {
	return errors.Is(err, ErrUnsupportedMethod) ||
		errors.Is(err, ErrUnsupportedAuth) ||
		errors.Is(err, ErrMissingAPIKey)
}
