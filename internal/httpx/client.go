// Package httpx is the shared HTTP layer under every provider: connection
// pooling, optional retry with backoff and jitter, request hooks, and
// key-sanitized logging.
package httpx

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Config configures a Client. Zero values get sensible defaults.
type Config struct {
	Timeout time.Duration // Per-request timeout (default: 90s)

	MaxIdleConns        int           // default: 100
	MaxIdleConnsPerHost int           // default: 10
	IdleConnTimeout     time.Duration // default: 90s

	Retry RetryConfig

	// BeforeRequest runs before every attempt, including retries. A
	// returned error aborts the call.
	BeforeRequest func(req *http.Request) error

	// OnRetry runs before each retry delay.
	OnRetry func(req *http.Request, attempt int, delay time.Duration)

	// Logger, when set, logs request/response lines with sanitized
	// credentials.
	Logger *log.Logger
}

func (c *Config) setDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 90 * time.Second
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	c.Retry.setDefaults()
}

// Client wraps net/http with retry and hook support.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a client from cfg, applying defaults to zero fields.
func NewClient(cfg Config) *Client {
	cfg.setDefaults()

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
}

// Do executes a request, retrying on 429 and 5xx when the retry config
// allows more than one attempt. The request body is preserved across
// attempts. The final response is returned even when its status is an
// error; callers classify non-2xx themselves.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		req.Body.Close()
	}

	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt < c.config.Retry.MaxAttempts; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		if c.config.BeforeRequest != nil {
			if err := c.config.BeforeRequest(req); err != nil {
				return nil, err
			}
		}
		if c.config.Logger != nil {
			c.logRequest(req, attempt)
		}

		resp, err := c.httpClient.Do(req)
		lastResp, lastErr = resp, err

		if err != nil {
			if !shouldRetry(nil, err) {
				return nil, err
			}
			continue
		}

		if c.config.Logger != nil {
			c.config.Logger.Printf("[HTTP] Response (attempt %d): %d %s",
				attempt+1, resp.StatusCode, resp.Status)
		}

		if !shouldRetry(resp, nil) || attempt == c.config.Retry.MaxAttempts-1 {
			return resp, nil
		}

		// Drain before retrying so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		delay := calculateBackoff(&c.config.Retry, attempt)
		if c.config.OnRetry != nil {
			c.config.OnRetry(req, attempt+1, delay)
		}
		time.Sleep(delay)
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}

func (c *Client) logRequest(req *http.Request, attempt int) {
	auth := req.Header.Get("Authorization")
	if auth == "" {
		auth = req.Header.Get("x-api-key")
	}
	c.config.Logger.Printf("[HTTP] Request (attempt %d): %s %s [auth=%s]",
		attempt+1, req.Method, req.URL.Path, SanitizeKey(auth))
}

// SanitizeKey masks everything but the first and last four characters of a
// credential so it can be logged safely.
func SanitizeKey(key string) string {
	key = strings.TrimPrefix(key, "Bearer ")
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
