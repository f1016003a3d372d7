package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type Anthropic struct {
	APIKey  string
	BaseURL string
	Retries int
	Debug   DebugFunc

	client *http.Client
}

func (a *Anthropic) Name() string {
	return "anthropic"
}

func (a *Anthropic) httpClient() *http.Client {
	if a.client == nil {
		a.client = &http.Client{}
	}
	return a.client
}

func (a *Anthropic) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	// Anthropic takes the system instruction as a top-level field, not a
	// message role.
	var system string
	var msgs []map[string]any
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		msgs = append(msgs, map[string]any{"role": m.Role, "content": m.Content})
	}

	body := map[string]any{
		"model":       model,
		"max_tokens":  2048,
		"temperature": 0,
		"messages":    msgs,
	}
	if system != "" {
		body["system"] = system
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := doWithRetry(ctx, a.httpClient(), req, payload, a.Retries, a.Debug)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		if a.Debug != nil {
			a.Debug("API ERROR BODY: %s", string(b))
		}
		return "", &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	for _, block := range out.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("response contained no text block")
}
