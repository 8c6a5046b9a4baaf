package httpx

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior. The zero value performs a single
// attempt: the core does not retry transport failures on its own, callers
// opt in through provider settings.
type RetryConfig struct {
	MaxAttempts   int           // Total attempts including the first (default: 1)
	BaseDelay     time.Duration // Delay before the first retry (default: 1s)
	MaxDelay      time.Duration // Cap on the delay between retries (default: 30s)
	Multiplier    float64       // Backoff multiplier (default: 2.0)
	JitterPercent float64       // Jitter fraction applied to each delay (default: 0.1)
}

func (r *RetryConfig) setDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 1
	}
	if r.BaseDelay == 0 {
		r.BaseDelay = 1 * time.Second
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = 30 * time.Second
	}
	if r.Multiplier == 0 {
		r.Multiplier = 2.0
	}
	if r.JitterPercent == 0 {
		r.JitterPercent = 0.1
	}
}

// shouldRetry reports whether a request is worth retrying. Rate limits and
// server-side errors retry; client errors, context cancellation, and bare
// network failures do not.
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
	}
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// calculateBackoff computes the delay before the next attempt using
// exponential backoff with jitter: min(base * multiplier^attempt, max),
// scaled by (1 ± jitter).
func calculateBackoff(cfg *RetryConfig, attempt int) time.Duration {
	if cfg.BaseDelay == 0 || cfg.Multiplier == 0 {
		return 0
	}

	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.JitterPercent > 0 {
		jitter := (rand.Float64()*2 - 1) * cfg.JitterPercent
		delay *= 1 + jitter
		if delay < 0 {
			delay = 0
		}
		if delay > float64(cfg.MaxDelay) {
			delay = float64(cfg.MaxDelay)
		}
	}

	return time.Duration(delay)
}
