package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openaiReply(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + mustJSON(content) + `}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestOpenAIComplete(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(openaiReply("```sh\nls /\n```")))
	}))
	defer srv.Close()

	p := &OpenAI{APIKey: "sk-test", BaseURL: srv.URL}
	reply, err := p.Complete(context.Background(), "gpt-4o-mini", []Message{
		{Role: "system", Content: "instructions"},
		{Role: "user", Content: "fix this"},
	})
	require.NoError(t, err)
	assert.Equal(t, "```sh\nls /\n```", reply)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	assert.EqualValues(t, 0, gotBody["temperature"])
}

func TestOpenAIAuthFailureNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	p := &OpenAI{APIKey: "bad", BaseURL: srv.URL, Retries: 3}
	_, err := p.Complete(context.Background(), "gpt-4o-mini", []Message{{Role: "user", Content: "hi"}})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
	assert.Contains(t, apiErr.Body, "invalid api key")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "auth failures must not be retried")
}

func TestOpenAIRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(openaiReply("ok")))
	}))
	defer srv.Close()

	p := &OpenAI{BaseURL: srv.URL, Retries: 2}
	reply, err := p.Complete(context.Background(), "gpt-4o-mini", []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestOpenAIRetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := &OpenAI{BaseURL: srv.URL, Retries: 1}
	_, err := p.Complete(context.Background(), "gpt-4o-mini", []Message{{Role: "user", Content: "hi"}})

	assert.ErrorIs(t, err, ErrTransient)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestOpenAITimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := &OpenAI{BaseURL: srv.URL}
	_, err := p.Complete(ctx, "gpt-4o-mini", []Message{{Role: "user", Content: "hi"}})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAnthropicComplete(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"content":[{"type":"text","text":"the answer"}]}`))
	}))
	defer srv.Close()

	p := &Anthropic{APIKey: "sk-ant", BaseURL: srv.URL}
	reply, err := p.Complete(context.Background(), "claude-sonnet-4-20250514", []Message{
		{Role: "system", Content: "instructions"},
		{Role: "user", Content: "explain"},
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", reply)

	// the system turn moves to the top-level field
	assert.Equal(t, "instructions", gotBody["system"])
	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestAnthropicNoTextBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	p := &Anthropic{APIKey: "sk-ant", BaseURL: srv.URL}
	_, err := p.Complete(context.Background(), "claude-sonnet-4-20250514", []Message{{Role: "user", Content: "hi"}})
	assert.Error(t, err)
}
