package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// #region types

// Params are the generation parameters sent with every request.
type Params struct {
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	PresencePenalty  float64 `json:"presence_penalty"`
	Seed             int64   `json:"seed,omitempty"`
}

type generateRequest struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Params
}

type generateResponse struct {
	Text    string `json:"text"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// #endregion types

// #region client

// Client is the HTTP client for the external text-generation service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config for the generation client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // default 30s
}

// NewClient creates a generation client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("generator base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// #endregion client

// #region generate

// Generate requests one text completion. Transport and service-level
// failures are returned as errors; retry policy belongs to the caller.
func (c *Client) Generate(ctx context.Context, prompt, systemPrompt string, p Params) (string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Params:       p,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("generator returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.Float64("temperature", p.Temperature))
		return "", fmt.Errorf("generator status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if !out.Success || out.Text == "" {
		return "", fmt.Errorf("generator failed: %s", out.Error)
	}

	c.logger.Debug("generated text",
		zap.Int("chars", len(out.Text)),
		zap.Float64("temperature", p.Temperature))
	return out.Text, nil
}

// #endregion generate

// #region helpers

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// #endregion helpers
