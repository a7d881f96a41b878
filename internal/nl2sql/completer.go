// Package nl2sql builds the text-to-SQL prompt and talks to the model backend.
package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/config"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/observability"
)

var (
	ErrBackendUnreachable = errors.New("model backend unreachable")
	ErrUnexpectedResponse = errors.New("unexpected model response")
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 4 << 20
)

// Completer sends one prompt and returns the raw completion text. The text is untrusted.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewCompleter picks the client for the configured provider.
func NewCompleter(cfg config.AIConfig) (Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", config.ProviderOllama:
		return NewOllamaClient(OllamaConfig{BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: cfg.Timeout})
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model, Timeout: cfg.Timeout})
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

type httpBackend struct {
	client  *http.Client
	timeout time.Duration
}

func newHTTPBackend(timeout time.Duration) httpBackend {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return httpBackend{client: &http.Client{Timeout: timeout}, timeout: timeout}
}

// postJSON sends payload and returns the response body. Transport failures, timeouts and
// error statuses map to ErrBackendUnreachable.
func (b httpBackend) postJSON(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal completion payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	observability.ObserveCompletion(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrBackendUnreachable, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrBackendUnreachable, resp.StatusCode, truncate(string(raw), 512))
	}
	return raw, nil
}

// decodeString reads a JSON string value and rejects any other JSON type.
func decodeString(raw json.RawMessage, field string) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: missing %s", ErrUnexpectedResponse, field)
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrUnexpectedResponse, field)
	}
	return value, nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
