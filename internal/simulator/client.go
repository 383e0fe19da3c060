package simulator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/okian/kiosk/internal/adapters/http/api"
	service "github.com/okian/kiosk/internal/app"
)

// Client talks to one kiosk.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
}

// NewClient creates a client whose plain requests time out after timeout.
// Streams are bounded by their context only.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		stream:  &http.Client{},
	}
}

// Health returns the status code and checks of /healthz.
func (c *Client) Health(ctx context.Context) (int, api.HealthResponse, error) {
	var checks api.HealthResponse
	resp, err := c.send(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&checks); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("decode health: %w", err)
	}
	return resp.StatusCode, checks, nil
}

// State reads the current view.
func (c *Client) State(ctx context.Context) (service.View, error) {
	var v service.View
	return v, c.call(ctx, http.MethodGet, "/api/state", nil, &v)
}

// Catalog reads the event catalog.
func (c *Client) Catalog(ctx context.Context) (api.CatalogResponse, error) {
	var cat api.CatalogResponse
	return cat, c.call(ctx, http.MethodGet, "/api/catalog", nil, &cat)
}

// Intent posts a visitor intent.
func (c *Client) Intent(ctx context.Context, intent string, index *int) (service.View, error) {
	var v service.View
	return v, c.call(ctx, http.MethodPost, "/api/intents", api.IntentRequest{Intent: intent, Index: index}, &v)
}

// Select moves to index.
func (c *Client) Select(ctx context.Context, index int) (service.View, error) {
	var v service.View
	return v, c.call(ctx, http.MethodPost, fmt.Sprintf("/api/select/%d", index), nil, &v)
}

// Next, Prev, OpenDetail and CloseDetail use the shortcut routes.
func (c *Client) Next(ctx context.Context) (service.View, error) {
	return c.shortcut(ctx, http.MethodPost, "/api/next")
}

func (c *Client) Prev(ctx context.Context) (service.View, error) {
	return c.shortcut(ctx, http.MethodPost, "/api/prev")
}

func (c *Client) OpenDetail(ctx context.Context) (service.View, error) {
	return c.shortcut(ctx, http.MethodPost, "/api/detail")
}

func (c *Client) CloseDetail(ctx context.Context) (service.View, error) {
	return c.shortcut(ctx, http.MethodDelete, "/api/detail")
}

// Key sends a keyboard key.
func (c *Client) Key(ctx context.Context, key string) (service.View, error) {
	var v service.View
	return v, c.call(ctx, http.MethodPost, "/api/keys", api.KeyRequest{Key: key}, &v)
}

// Stream delivers every view pushed on /api/stream to fn until ctx ends or
// the server closes the stream.
func (c *Client) Stream(ctx context.Context, fn func(service.View)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stream", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var v service.View
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		fn(v)
	}
	if ctx.Err() != nil {
		return nil
	}
	return sc.Err()
}

func (c *Client) shortcut(ctx context.Context, method, path string) (service.View, error) {
	var v service.View
	return v, c.call(ctx, method, path, nil, &v)
}

// call sends body as JSON and decodes a 2xx answer into out.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.RequestIDHeader, uuid.NewString())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	se := &StatusError{Status: resp.StatusCode}
	_ = json.NewDecoder(resp.Body).Decode(&se.Body)
	return se
}
