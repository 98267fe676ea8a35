// Package client is the HTTP client for a running chkd server. The CLI
// status and watch commands use it to read the coordination state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chkd/chkd/internal/engine"
	"github.com/chkd/chkd/internal/store"
)

// Client talks to one chkd server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the server at addr (host:port).
func New(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// envelope mirrors the server's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chkd server unreachable: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("%s", env.Error)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func repoQuery(repoPath string) url.Values {
	return url.Values{"repoPath": []string{repoPath}}
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/api/health", nil, nil)
}

// Session fetches a repo's session view.
func (c *Client) Session(ctx context.Context, repoPath string) (*engine.SessionView, error) {
	var view engine.SessionView
	if err := c.get(ctx, "/api/session", repoQuery(repoPath), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Workers lists a repo's workers.
func (c *Client) Workers(ctx context.Context, repoPath string) ([]*store.Worker, error) {
	var workers []*store.Worker
	if err := c.get(ctx, "/api/workers", repoQuery(repoPath), &workers); err != nil {
		return nil, err
	}
	return workers, nil
}

// Signals lists a repo's active signals.
func (c *Client) Signals(ctx context.Context, repoPath string) ([]*store.Signal, error) {
	var signals []*store.Signal
	if err := c.get(ctx, "/api/signals", repoQuery(repoPath), &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// Progress fetches a repo's done/total item counts.
func (c *Client) Progress(ctx context.Context, repoPath string) (*store.Progress, error) {
	var progress store.Progress
	if err := c.get(ctx, "/api/items/progress", repoQuery(repoPath), &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// DismissSignal marks one signal handled.
func (c *Client) DismissSignal(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/signals/"+id, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// MigrateRun asks the server to import a repo's markdown checklist.
func (c *Client) MigrateRun(ctx context.Context, repoPath, file string) (map[string]any, error) {
	var result map[string]any
	err := c.post(ctx, "/api/migrate/run", map[string]string{"repoPath": repoPath, "file": file}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}
