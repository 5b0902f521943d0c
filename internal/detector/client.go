package detector

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

// #region client

// Client is the HTTP client for the external authenticity classifier.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig for the classifier client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // default 20s
}

// NewClient creates a classifier client.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("classifier base URL is required")
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

// #region detect

type detectRequest struct {
	Text string `json:"text"`
}

// Detect submits text for authenticity classification.
func (c *Client) Detect(ctx context.Context, text string) (ClassifierResponse, error) {
	body, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return ClassifierResponse{}, fmt.Errorf("marshal detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/detect", bytes.NewReader(body))
	if err != nil {
		return ClassifierResponse{}, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ClassifierResponse{}, fmt.Errorf("detect request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ClassifierResponse{}, fmt.Errorf("read detect response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("classifier returned non-200", zap.Int("status", resp.StatusCode))
		return ClassifierResponse{}, fmt.Errorf("classifier status %d", resp.StatusCode)
	}

	var out ClassifierResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return ClassifierResponse{}, fmt.Errorf("decode detect response: %w", err)
	}
	if !out.Success {
		return ClassifierResponse{}, fmt.Errorf("classifier failed: %s", out.Error)
	}
	return out, nil
}

// #endregion detect
