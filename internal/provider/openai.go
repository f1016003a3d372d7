package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OpenAI talks to any /chat/completions compatible endpoint (OpenAI,
// DeepSeek, OpenRouter, Ollama, ...).
type OpenAI struct {
	ProviderName string
	APIKey       string
	BaseURL      string
	Retries      int
	Debug        DebugFunc

	client *http.Client
}

func (o *OpenAI) Name() string {
	if o.ProviderName != "" {
		return o.ProviderName
	}
	return "openai"
}

func (o *OpenAI) httpClient() *http.Client {
	if o.client == nil {
		o.client = &http.Client{}
	}
	return o.client
}

func (o *OpenAI) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	body := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": 0,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	resp, err := doWithRetry(ctx, o.httpClient(), req, payload, o.Retries, o.Debug)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		if o.Debug != nil {
			o.Debug("API ERROR BODY: %s", string(b))
		}
		return "", &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}
	return out.Choices[0].Message.Content, nil
}
