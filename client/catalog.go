package client

import (
	"chatrelay/domain"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RemoteModel is a catalog entry as the relay reports it.
type RemoteModel struct {
	domain.Model
	Configured bool `json:"configured"`
	Streaming  bool `json:"streaming"`
}

// Health is the relay's liveness report.
type Health struct {
	Status    string          `json:"status"`
	Providers map[string]bool `json:"providers"`
}

// Models fetches the relay's model catalog with per-model credential status.
func (c *Client) Models(ctx context.Context) ([]RemoteModel, error) {
	var resp struct {
		Models []RemoteModel `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/models", &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	err := c.getJSON(ctx, "/healthz", &health)
	return health, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode API response for %s (status %s): %w", path, resp.Status, err)
	}
	return nil
}
