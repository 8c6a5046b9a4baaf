// Package sse reads Server-Sent Event responses as a lazy, single-pass,
// cancellable sequence of data payloads. It is the shared streaming
// adapter under providers that support streamed responses.
package sse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Options tune a Reader.
type Options struct {
	// IdleTimeout, when positive, disposes the stream and ends the
	// sequence gracefully if no line arrives within the window.
	IdleTimeout time.Duration

	// Terminal, when set, declares a payload to be the provider-specific
	// end marker. The payload is still emitted, then the sequence stops.
	Terminal func(payload string) bool
}

// Reader produces SSE data payloads from an open HTTP response. Only
// lines with the "data:" prefix carry payloads; a literal "[DONE]"
// terminates the sequence and blank keep-alive lines are skipped.
type Reader struct {
	events chan string
	body   io.ReadCloser
	quit   chan struct{}

	disposeOnce sync.Once
	quitOnce    sync.Once
	graceful    atomic.Bool

	mu  sync.Mutex
	err error
}

// New wraps a response opened with headers-read completion. A non-success
// status raises immediately with the response body as context. The
// cancellation of ctx stops the read loop and disposes the stream,
// unblocking any pending read.
func New(ctx context.Context, resp *http.Response, opts Options) (*Reader, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("stream request failed: HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	r := &Reader{
		events: make(chan string, 8),
		body:   resp.Body,
		quit:   make(chan struct{}),
	}

	activity := make(chan struct{}, 1)
	stopWatch := make(chan struct{})
	go r.watch(ctx, activity, stopWatch, opts.IdleTimeout)
	go r.loop(ctx, activity, stopWatch, opts)
	return r, nil
}

// Events returns the payload channel. It closes when the sequence ends,
// for any reason; check Err afterwards.
func (r *Reader) Events() <-chan string {
	return r.events
}

// Err reports a mid-stream failure, nil after a clean or graceful end.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close ends the sequence early and disposes the underlying stream.
func (r *Reader) Close() error {
	r.quitOnce.Do(func() { close(r.quit) })
	r.graceful.Store(true)
	r.dispose()
	return nil
}

func (r *Reader) dispose() {
	r.disposeOnce.Do(func() { r.body.Close() })
}

func (r *Reader) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// loop scans the body line by line and forwards data payloads.
func (r *Reader) loop(ctx context.Context, activity chan<- struct{}, stopWatch chan struct{}, opts Options) {
	defer close(r.events)
	defer close(stopWatch)
	defer r.dispose()

	scanner := bufio.NewScanner(r.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case activity <- struct{}{}:
		default:
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			// Keep-alive.
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return
		}

		terminal := opts.Terminal != nil && opts.Terminal(payload)
		select {
		case r.events <- payload:
		case <-ctx.Done():
			return
		case <-r.quit:
			return
		}
		if terminal {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		// An I/O error after cancellation or an idle-timeout disposal is
		// the expected way the blocked read unblocks; swallow it.
		if ctx.Err() != nil || r.graceful.Load() {
			return
		}
		r.setErr(err)
	}
}

// watch disposes the stream on cancellation or idle timeout so a pending
// read unblocks instead of waiting for data that will never come.
func (r *Reader) watch(ctx context.Context, activity <-chan struct{}, stopWatch <-chan struct{}, idle time.Duration) {
	var timeout <-chan time.Time
	var timer *time.Timer
	if idle > 0 {
		timer = time.NewTimer(idle)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-stopWatch:
			return
		case <-ctx.Done():
			r.graceful.Store(true)
			r.dispose()
			return
		case <-activity:
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(idle)
			}
		case <-timeout:
			r.graceful.Store(true)
			r.dispose()
			return
		}
	}
}

// Collect drains the sequence into a slice, mostly for callers that do
// not need incremental consumption.
func (r *Reader) Collect() ([]string, error) {
	var payloads []string
	for p := range r.Events() {
		payloads = append(payloads, p)
	}
	return payloads, r.Err()
}
