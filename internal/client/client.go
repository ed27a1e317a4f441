// Package client talks to a running workerctl server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hookdeck/workerctl/internal/apirouter"
	"github.com/hookdeck/workerctl/internal/messagerouter"
	"github.com/hookdeck/workerctl/internal/worker"
)

const basePath = "/api/v1"

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Data       json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

func New(baseURL string, apiKey string, opts ...Option) *Client {
	c := &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Message string          `json:"message"`
			Data    json.RawMessage `json:"data"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			apiErr.Message = errBody.Message
			apiErr.Data = errBody.Data
		}
		return resp.StatusCode, apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func workerPath(name string, suffix ...string) string {
	return basePath + "/workers/" + url.PathEscape(name) + strings.Join(suffix, "")
}

// Health returns nil when every server-side service is healthy.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

func (c *Client) ListWorkers(ctx context.Context) (apirouter.StatusResponse, error) {
	var resp apirouter.StatusResponse
	_, err := c.do(ctx, http.MethodGet, basePath+"/workers", nil, &resp)
	return resp, err
}

func (c *Client) CreateWorker(ctx context.Context) (worker.Info, error) {
	var info worker.Info
	_, err := c.do(ctx, http.MethodPost, basePath+"/workers", nil, &info)
	return info, err
}

func (c *Client) GetWorker(ctx context.Context, name string) (worker.Info, error) {
	var info worker.Info
	_, err := c.do(ctx, http.MethodGet, workerPath(name), nil, &info)
	return info, err
}

// StopWorker asks the named worker to stop. It returns before the worker exits.
func (c *Client) StopWorker(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodPost, workerPath(name, "/stop"), nil, nil)
	return err
}

// StopLatest stops the most recently started worker. ok is false when no
// worker was running.
func (c *Client) StopLatest(ctx context.Context) (name string, ok bool, err error) {
	var resp apirouter.StopResponse
	if _, err := c.do(ctx, http.MethodPost, basePath+"/workers/stop-latest", nil, &resp); err != nil {
		return "", false, err
	}
	if resp.Name == nil {
		return "", false, nil
	}
	return *resp.Name, true, nil
}

func (c *Client) StopAll(ctx context.Context) (int, error) {
	var resp apirouter.StopAllResponse
	_, err := c.do(ctx, http.MethodPost, basePath+"/workers/stop-all", nil, &resp)
	return resp.Count, err
}

// Send delivers message to target, a worker name or messagerouter.TargetAll.
func (c *Client) Send(ctx context.Context, target, message string) (messagerouter.Result, error) {
	var result messagerouter.Result
	body := map[string]string{"target": target, "message": message}
	_, err := c.do(ctx, http.MethodPost, basePath+"/messages", body, &result)
	return result, err
}

func (c *Client) Log(ctx context.Context, name string) ([]string, error) {
	var resp apirouter.LogResponse
	if _, err := c.do(ctx, http.MethodGet, workerPath(name, "/log"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lines, nil
}
