// Package openai adapts OpenAI-compatible endpoints (OpenAI, Ollama, vLLM, Nebius)
// to the embedding and generation backend contracts.
package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds the provider connection settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Provider string        // metrics label, e.g. "ollama"
	Timeout  time.Duration // per-request HTTP timeout, zero means none
	Logger   *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(clientCfg)
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// parseAPIError extracts a human-readable error from the API response and classifies it
// with kind, keeping the original error in the chain.
func parseAPIError(op string, err error, kind error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w: %w", op, reqErr.HTTPStatusCode, detail, kind, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w: %w", op, apiErr.HTTPStatusCode, apiErr.Message, kind, err)
	}

	return fmt.Errorf("%s request failed: %w: %w", op, kind, err)
}

// extractDetail extracts the "detail" or "error" field from a JSON error body.
// Nebius answers {"detail": ...}, Ollama answers {"error": "..."}.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string          `json:"detail"`
		Error  json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	var s string
	if json.Unmarshal(parsed.Error, &s) == nil {
		return s
	}
	return ""
}
