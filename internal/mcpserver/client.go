package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mbd888/nexaguard/internal/history"
	"github.com/mbd888/nexaguard/internal/risk"
)

// Config holds the configuration for connecting to a Nexa Guard backend.
type Config struct {
	APIURL  string // Base URL, e.g. "http://localhost:4000"
	Timeout time.Duration
}

// Client is a plain HTTP client for the Nexa Guard API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new client for the Nexa Guard API.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type walletResponse struct {
	OK       bool                  `json:"ok"`
	Analysis risk.WalletAssessment `json:"analysis"`
}

type tokenResponse struct {
	OK       bool                 `json:"ok"`
	Analysis risk.TokenAssessment `json:"analysis"`
}

type historyResponse struct {
	OK      bool            `json:"ok"`
	History []history.Entry `json:"history"`
}

// AnalyzeWallet scores a wallet address.
func (c *Client) AnalyzeWallet(ctx context.Context, address string) (*risk.WalletAssessment, error) {
	var resp walletResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/analyze-wallet", map[string]string{"address": address}, &resp); err != nil {
		return nil, err
	}
	return &resp.Analysis, nil
}

// AnalyzeToken scores a coin type. The API reuses the "address" field for it.
func (c *Client) AnalyzeToken(ctx context.Context, coinType string) (*risk.TokenAssessment, error) {
	var resp tokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/analyze-token", map[string]string{"address": coinType}, &resp); err != nil {
		return nil, err
	}
	return &resp.Analysis, nil
}

// History returns recent analyses, most recent first.
func (c *Client) History(ctx context.Context) ([]history.Entry, error) {
	var resp historyResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}
