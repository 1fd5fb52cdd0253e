// Package tutorclient is a thin HTTP client for the tutor API.
package tutorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

// requestTimeout bounds every API call; timeouts surface as regular failures.
const requestTimeout = 30 * time.Second

// Client talks to the tutor API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at baseURL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// Languages fetches the supported language catalog.
func (c *Client) Languages(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/languages", nil)
	if err != nil {
		return nil, fmt.Errorf("build languages request: %w", err)
	}

	var languages []string
	if err := c.do(req, &languages); err != nil {
		return nil, err
	}
	return languages, nil
}

// Chat sends one user turn and returns the structured tutor reply.
func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	var resp models.ChatResponse
	if err := c.post(ctx, "/api/v1/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests a conversation-opening greeting.
func (c *Client) Start(ctx context.Context, req models.StartRequest) (*models.StartResponse, error) {
	var resp models.StartResponse
	if err := c.post(ctx, "/api/v1/start", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tutor API unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError extracts the server's error envelope when present, falling back
// to the bare status.
func apiError(status int, body []byte) error {
	var envelope models.ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Errorf("tutor API error (%d %s): %s", status, envelope.Error.Code, envelope.Error.Message)
	}
	return fmt.Errorf("tutor API error: unexpected status %d", status)
}
