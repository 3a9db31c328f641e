package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"interviewlink/native/internal/domain"
)

// Client talks to the interview service REST boundary. The service itself
// (record storage, auth) is an external collaborator; the agent only
// validates a session before joining and marks it active.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an interview API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch loads the interview record for sessionID, gating the room join.
func (c *Client) Fetch(ctx context.Context, sessionID string) (*domain.Interview, error) {
	url := fmt.Sprintf("%s/interviews/%s", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch interview: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("interview %s not found", sessionID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var iv domain.Interview
	if err := json.Unmarshal(body, &iv); err != nil {
		return nil, fmt.Errorf("unmarshal interview: %w", err)
	}
	return &iv, nil
}

// Start marks the interview active. Called once both sides are connected.
func (c *Client) Start(ctx context.Context, sessionID string) error {
	url := fmt.Sprintf("%s/interviews/%s/start", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("start interview: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
