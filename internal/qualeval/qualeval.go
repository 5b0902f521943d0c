package qualeval

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

// DimensionScore is one scored quality dimension (clarity, tone, etc.).
type DimensionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"` // 0–10
}

// Evaluation is the qualitative evaluator output.
type Evaluation struct {
	Overall    float64          `json:"overall_score"` // 0–10
	Dimensions []DimensionScore `json:"dimension_scores"`
}

type evaluateRequest struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

// #endregion types

// #region client

// Client is the HTTP client for the optional qualitative evaluator.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config for the evaluator client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // default 20s
}

// NewClient creates an evaluator client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("evaluator base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// #endregion client

// #region evaluate

// Evaluate scores text against the given context (subject, kind, brief).
func (c *Client) Evaluate(ctx context.Context, text, evalContext string) (Evaluation, error) {
	body, err := json.Marshal(evaluateRequest{Text: text, Context: evalContext})
	if err != nil {
		return Evaluation{}, fmt.Errorf("marshal evaluate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return Evaluation{}, fmt.Errorf("build evaluate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Evaluation{}, fmt.Errorf("read evaluate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("evaluator returned non-200", zap.Int("status", resp.StatusCode))
		return Evaluation{}, fmt.Errorf("evaluator status %d", resp.StatusCode)
	}

	var out Evaluation
	if err := json.Unmarshal(raw, &out); err != nil {
		return Evaluation{}, fmt.Errorf("decode evaluate response: %w", err)
	}
	return out, nil
}

// #endregion evaluate
