// Package client provides an HTTP client for the hyprsave daemon API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to a running hyprsave daemon over its HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8888/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new hyprsave API client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable reports whether a daemon answers on the configured address.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Status is the daemon status document.
type Status struct {
	State        string    `json:"state"`
	Since        time.Time `json:"since"`
	Watching     []string  `json:"watching"`
	Skipped      []string  `json:"skipped,omitempty"`
	LastSave     time.Time `json:"last_save"`
	LastChange   string    `json:"last_change,omitempty"`
	AutoSaves    int       `json:"auto_saves"`
	ManualSaves  int       `json:"manual_saves"`
	ChangesSeen  int       `json:"changes_seen"`
	Environments int       `json:"environments"`
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.do(ctx, http.MethodGet, "/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveResult reports a completed save.
type SaveResult struct {
	Saved     bool      `json:"saved"`
	Timestamp time.Time `json:"timestamp"`
	Windows   int       `json:"windows"`
}

// Save asks the daemon to capture the session now.
func (c *Client) Save(ctx context.Context) (*SaveResult, error) {
	var res SaveResult
	if err := c.do(ctx, http.MethodPost, "/save", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RestoreResult reports a completed restore.
type RestoreResult struct {
	Restored bool     `json:"restored"`
	Expected int      `json:"expected_windows"`
	Found    int      `json:"found_windows"`
	Mismatch bool     `json:"mismatch"`
	Launched int      `json:"launched"`
	Warnings []string `json:"warnings,omitempty"`
}

// Restore asks the daemon to replay the stored snapshot.
func (c *Client) Restore(ctx context.Context) (*RestoreResult, error) {
	var res RestoreResult
	if err := c.do(ctx, http.MethodPost, "/restore", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Change is one audit log entry.
type Change struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Path       string    `json:"path"`
	Type       string    `json:"type"`
	Score      int       `json:"score"`
	Triggered  bool      `json:"triggered"`
}

// Changes fetches the newest audit entries.
func (c *Client) Changes(ctx context.Context, limit int) ([]Change, error) {
	path := "/changes"
	if limit > 0 {
		path = fmt.Sprintf("/changes?limit=%d", limit)
	}
	var out []Change
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon error: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
