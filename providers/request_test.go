package providers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRequest() *Request {
	return &Request{
		Endpoint: "https://api.openai.com/v1/chat/completions",
		Method:   http.MethodPost,
		Auth:     AuthBearer,
		APIKey:   "sk-test",
		Model:    "gpt-4o",
	}
}

// TestRequest_Validate_MethodAndAuthGates tests the supported-set checks
func TestRequest_Validate_MethodAndAuthGates(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Request)
		sentinel error
	}{
		{"valid", func(r *Request) {}, nil},
		{"get allowed", func(r *Request) { r.Method = http.MethodGet }, nil},
		{"delete allowed", func(r *Request) { r.Method = http.MethodDelete }, nil},
		{"patch allowed", func(r *Request) { r.Method = http.MethodPatch }, nil},
		{"put rejected", func(r *Request) { r.Method = http.MethodPut }, ErrUnsupportedMethod},
		{"head rejected", func(r *Request) { r.Method = http.MethodHead }, ErrUnsupportedMethod},
		{"empty method rejected", func(r *Request) { r.Method = "" }, ErrUnsupportedMethod},
		{"x-api-key allowed", func(r *Request) { r.Auth = AuthAPIKey }, nil},
		{"basic auth rejected", func(r *Request) { r.Auth = "basic" }, ErrUnsupportedAuth},
		{"empty auth rejected", func(r *Request) { r.Auth = "" }, ErrUnsupportedAuth},
		{"empty endpoint recoverable", func(r *Request) { r.Endpoint = "" }, ErrInvalidRequest},
		{"empty model recoverable", func(r *Request) { r.Model = "" }, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := req.Validate()
			if tt.sentinel == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.sentinel))
		})
	}
}

// TestIsProgrammerError_SentinelClassification tests the Call error boundary
func TestIsProgrammerError_SentinelClassification(t *testing.T) {
	assert.True(t, IsProgrammerError(ErrUnsupportedMethod))
	assert.True(t, IsProgrammerError(ErrUnsupportedAuth))
	assert.True(t, IsProgrammerError(ErrMissingAPIKey))
	assert.False(t, IsProgrammerError(ErrInvalidRequest))
	assert.False(t, IsProgrammerError(errors.New("network down")))
	assert.False(t, IsProgrammerError(nil))
}
