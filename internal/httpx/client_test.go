package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClient_Do_SingleAttemptByDefault tests that the zero config never retries
func TestClient_Do_SingleAttemptByDefault(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

// TestClient_Do_RetriesServerErrors_PreservesBody tests body replay across attempts
func TestClient_Do_RetriesServerErrors_PreservesBody(t *testing.T) {
	var hits atomic.Int32
	var bodies [][]byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, body)
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	var retries atomic.Int32
	client := NewClient(Config{
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
		},
		OnRetry: func(req *http.Request, attempt int, delay time.Duration) {
			retries.Add(1)
		},
	})

	req, _ := http.NewRequest(http.MethodPost, server.URL, bytes.NewReader([]byte(`{"model":"gpt-4o"}`)))
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, int32(2), retries.Load())
	for _, body := range bodies {
		assert.Equal(t, `{"model":"gpt-4o"}`, string(body))
	}
}

// TestClient_Do_ClientErrors_NotRetried tests that 4xx (except 429) returns immediately
func TestClient_Do_ClientErrors_NotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{Retry: RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

// TestClient_Do_BeforeRequestError_Aborts tests the pre-attempt hook
func TestClient_Do_BeforeRequestError_Aborts(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := NewClient(Config{
		BeforeRequest: func(req *http.Request) error {
			return context.Canceled
		},
	})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err := client.Do(req)
	assert.Error(t, err)
	assert.Equal(t, int32(0), hits.Load())
}

// TestShouldRetry_StatusClassification tests the retryable status set
func TestShouldRetry_StatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, shouldRetry(&http.Response{StatusCode: tt.status}, nil),
			"status %d", tt.status)
	}

	assert.False(t, shouldRetry(nil, context.Canceled))
	assert.False(t, shouldRetry(nil, io.ErrUnexpectedEOF))
}

// TestCalculateBackoff_ExponentialWithCap tests backoff growth and bounds
func TestCalculateBackoff_ExponentialWithCap(t *testing.T) {
	cfg := &RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0}

	prev := time.Duration(0)
	for attempt := 0; attempt < 6; attempt++ {
		delay := calculateBackoff(cfg, attempt)
		assert.LessOrEqual(t, delay, time.Second)
		assert.GreaterOrEqual(t, delay, prev)
		prev = delay
	}
	assert.Equal(t, time.Second, calculateBackoff(cfg, 10))
}

// TestSanitizeKey_MasksCredentials tests credential masking for logs
func TestSanitizeKey_MasksCredentials(t *testing.T) {
	assert.Equal(t, "", SanitizeKey(""))
	assert.Equal(t, "****", SanitizeKey("short"))
	assert.Equal(t, "sk-t...cdef", SanitizeKey("sk-test-1234-abcdef"))
	assert.Equal(t, "sk-t...cdef", SanitizeKey("Bearer sk-test-1234-abcdef"))
}
