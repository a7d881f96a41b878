package nl2sql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaClient calls the /api/generate endpoint with streaming disabled and temperature 0.
type OllamaClient struct {
	baseURL string
	model   string
	backend httpBackend
}

func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "mistral"
	}
	return &OllamaClient{baseURL: baseURL, model: model, backend: newHTTPBackend(cfg.Timeout)}, nil
}

func (c *OllamaClient) Model() string {
	return c.model
}

func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":   c.model,
		"prompt":  prompt,
		"stream":  false,
		"options": map[string]any{"temperature": 0},
	}
	raw, err := c.backend.postJSON(ctx, c.baseURL+"/api/generate", nil, payload)
	if err != nil {
		return "", err
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode generate response: %v", ErrUnexpectedResponse, err)
	}
	return decodeString(parsed["response"], "response")
}
