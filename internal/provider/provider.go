// Package provider holds the pluggable model backends. Each backend is one
// implementation of Provider over its raw HTTP API; selection happens in cmd
// from the configured provider type.
package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTimeout reports that the model call exceeded its deadline, including
// time spent in retries.
var ErrTimeout = errors.New("backend timed out")

// ErrTransient reports that transient failures (network errors, 429, 5xx)
// persisted through every retry. It shares the timeout exit class: the
// backend was reachable in principle but never answered in time.
var ErrTransient = errors.New("transient backend failure")

// APIError is a non-transient backend failure (authentication, malformed
// request). It surfaces immediately with the provider's message attached and
// is never retried.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is one model backend. Complete sends the messages and returns the
// raw reply text; ctx carries the overall deadline and user cancellation.
type Provider interface {
	Name() string
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}

// DebugFunc is an optional debug logger backends can use.
type DebugFunc func(format string, args ...any)

// doWithRetry sends the request, retrying on transport errors, 429 and 5xx
// with doubling backoff. Other statuses return immediately; classification
// into APIError is left to the caller.
func doWithRetry(ctx context.Context, client *http.Client, req *http.Request, payload []byte, retries int, dbg DebugFunc) (*http.Response, error) {
	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if dbg != nil {
				dbg("retry %d/%d after %s: %v", attempt, retries, backoff, lastErr)
			}
			select {
			case <-ctx.Done():
				return nil, wrapCtxErr(ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		req.Body = io.NopCloser(bytes.NewReader(payload))
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, wrapCtxErr(ctx.Err())
			}
			lastErr = err
			continue
		}
		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = &APIError{Status: resp.StatusCode, Body: string(b)}
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrTransient, retries+1, lastErr)
}

func wrapCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
