// Package api provides a client for the dashboard's backend HTTP API.
package api

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

	"github.com/narvanalabs/builder-dashboard/internal/models"
)

// Fallback messages used when a failed write response carries no error field.
const (
	MsgExecuteFailed  = "Failed to trigger execution"
	MsgRegisterFailed = "Failed to register builder"
)

// Client is an API client for the dashboard backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 30*time.Second)
}

// NewClientWithTimeout creates a new API client with the given request timeout.
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// StatusError is returned by read calls when the backend answers with a
// non-success status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Body)
}

// APIError is returned by write calls when the backend rejects the request. Its
// message is the backend's error field, or a generic message when absent.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// ExecuteRequest is the body of POST /api/execute.
type ExecuteRequest struct {
	BuilderID string          `json:"builder_id"`
	Backend   string          `json:"backend"`
	Payload   json.RawMessage `json:"payload"`
}

// RegisterBuilderRequest is the body of POST /api/builders.
type RegisterBuilderRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ActivityResponse is the body of GET /api/activity.
type ActivityResponse struct {
	Activity []models.ActivityItem `json:"activity"`
}

// ExecutionsResponse is the body of GET /api/executions.
type ExecutionsResponse struct {
	Executions []models.Execution `json:"executions"`
}

// BuildersResponse is the body of GET /api/builders.
type BuildersResponse struct {
	Builders []models.Builder `json:"builders"`
}

// ExecutionResponse is the body of GET /api/status/{id} and POST /api/execute.
type ExecutionResponse struct {
	Execution *models.Execution `json:"execution,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// BuilderResponse is the body of POST /api/builders.
type BuilderResponse struct {
	Builder *models.Builder `json:"builder,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ListActivity fetches the recent activity items, oldest first.
func (c *Client) ListActivity(ctx context.Context) ([]models.ActivityItem, error) {
	var resp ActivityResponse
	err := c.get(ctx, "/api/activity", &resp)
	return resp.Activity, err
}

// ListExecutions fetches all executions.
func (c *Client) ListExecutions(ctx context.Context) ([]models.Execution, error) {
	var resp ExecutionsResponse
	err := c.get(ctx, "/api/executions", &resp)
	return resp.Executions, err
}

// ListBuilders fetches all registered builders.
func (c *Client) ListBuilders(ctx context.Context) ([]models.Builder, error) {
	var resp BuildersResponse
	err := c.get(ctx, "/api/builders", &resp)
	return resp.Builders, err
}

// GetStatus fetches a single execution.
func (c *Client) GetStatus(ctx context.Context, id string) (*models.Execution, error) {
	var resp ExecutionResponse
	if err := c.get(ctx, "/api/status/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	if resp.Execution == nil {
		return nil, fmt.Errorf("decoding response: missing execution")
	}
	return resp.Execution, nil
}

// Execute triggers a new execution.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*models.Execution, error) {
	if len(req.Payload) == 0 {
		req.Payload = json.RawMessage("{}")
	}
	var resp ExecutionResponse
	if err := c.post(ctx, "/api/execute", req, &resp, func() string { return resp.Error }, MsgExecuteFailed); err != nil {
		return nil, err
	}
	if resp.Execution == nil {
		return nil, fmt.Errorf("decoding response: missing execution")
	}
	return resp.Execution, nil
}

// RegisterBuilder registers a new builder.
func (c *Client) RegisterBuilder(ctx context.Context, req RegisterBuilderRequest) (*models.Builder, error) {
	var resp BuilderResponse
	if err := c.post(ctx, "/api/builders", req, &resp, func() string { return resp.Error }, MsgRegisterFailed); err != nil {
		return nil, err
	}
	if resp.Builder == nil {
		return nil, fmt.Errorf("decoding response: missing builder")
	}
	return resp.Builder, nil
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Components map[string]HealthComponent `json:"components"`
}

// HealthComponent is the health of one backend component.
type HealthComponent struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health fetches the backend's health report. An unhealthy backend answers 503;
// its report is returned together with the *StatusError.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.get(ctx, "/health", &resp)
	if err == nil {
		return &resp, nil
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && json.Unmarshal([]byte(statusErr.Body), &resp) == nil && resp.Status != "" {
		return &resp, err
	}
	return nil, err
}

// get performs a GET request and unmarshals the response.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// post sends body as JSON and decodes the response whatever its status. A
// non-success status becomes an *APIError carrying errField() or fallback.
func (c *Client) post(ctx context.Context, path string, body, result interface{}, errField func() string, fallback string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errField()
		if msg == "" {
			msg = fallback
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}
