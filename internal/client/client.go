// Package client talks to a running koboldswitch server over its REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"koboldswitch/pkg/types"
)

// DefaultServer is the address used when none is configured.
const DefaultServer = "http://127.0.0.1:8080"

// Client is a client for the koboldswitch control API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithTimeout bounds every request made by the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{Timeout: d}
		return nil
	}
}

// New creates a client for server, which may omit the scheme ("host:port").
func New(server string, opts ...Option) (*Client, error) {
	if server == "" {
		server = DefaultServer
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	c := &Client{baseURL: strings.TrimRight(u.String(), "/")}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c, nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Problems   []string
}

func (e *APIError) Error() string {
	switch {
	case len(e.Problems) > 0:
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, strings.Join(e.Problems, "; "))
	case e.Message != "":
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
}

// IsConflict reports whether err is a 409 from the server.
func IsConflict(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusConflict
}

// Status returns the current model status.
func (c *Client) Status(ctx context.Context) (types.ModelStatusResponse, error) {
	var out types.ModelStatusResponse
	err := c.do(ctx, http.MethodGet, "/model", nil, &out)
	return out, err
}

// Start requests a model load. A positive wait blocks server-side until the
// model is online or failed.
func (c *Client) Start(ctx context.Context, req types.ModelRequest, wait time.Duration) error {
	return c.do(ctx, http.MethodPut, withWait("/model", wait), req, nil)
}

// Stop requests the running model be stopped. A positive wait blocks
// server-side until it is offline.
func (c *Client) Stop(ctx context.Context, wait time.Duration) error {
	return c.do(ctx, http.MethodDelete, withWait("/model", wait), nil, nil)
}

// Models lists the model files available to the server.
func (c *Client) Models(ctx context.Context) ([]types.Model, error) {
	var out types.ModelsResponse
	if err := c.do(ctx, http.MethodGet, "/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Probe checks that the server is reachable.
func (c *Client) Probe(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/probe", nil, nil)
}

func withWait(path string, wait time.Duration) string {
	if wait <= 0 {
		return path
	}
	return path + "?wait=" + url.QueryEscape(wait.String())
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	ae := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error  string   `json:"error"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		ae.Message = payload.Error
		ae.Problems = payload.Errors
	} else {
		ae.Message = strings.TrimSpace(string(data))
	}
	return ae
}
