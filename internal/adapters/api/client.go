// Package api provides the HTTP gateway to the remote task REST API.
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

	"github.com/charmbracelet/log"
	"github.com/evanschultz/taskdeck/internal/domain"
	"github.com/google/uuid"
)

// DefaultBaseURL is the API root used when none is configured.
const DefaultBaseURL = "http://127.0.0.1:8000/api"

// DefaultTimeout bounds each request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes int64 = 4 << 20

// requestIDHeader carries the per-request correlation id.
const requestIDHeader = "X-Request-ID"

// Config holds gateway connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger routes request logs to logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestIDFunc overrides request id generation.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// Client performs task API calls. It holds no task state.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	logger    *log.Logger
	requestID func() string
}

// New constructs a gateway client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", raw)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("api base url %q: host is required", raw)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: timeout},
		logger:    log.New(io.Discard),
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListTasks returns tasks in server order. An empty status disables filtering.
func (c *Client) ListTasks(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", string(status))
	}
	var out []domain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/", query, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Task{}
	}
	return out, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	var out domain.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, nil, &out); err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// CreateTask creates a task and returns the server's copy.
func (c *Client) CreateTask(ctx context.Context, title, description string) (domain.Task, error) {
	body := map[string]string{"title": title, "description": description}
	var out domain.Task
	if err := c.do(ctx, http.MethodPost, "/tasks/", nil, body, &out); err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// PatchTaskStatus requests a status change. A 400 reply wraps ErrTransitionRejected.
func (c *Client) PatchTaskStatus(ctx context.Context, id int64, status domain.Status) (domain.Task, error) {
	body := map[string]string{"status": string(status)}
	var out domain.Task
	err := c.do(ctx, http.MethodPatch, taskPath(id), nil, body, &out)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusBadRequest {
			return domain.Task{}, fmt.Errorf("%w: %w", ErrTransitionRejected, err)
		}
		return domain.Task{}, err
	}
	return out, nil
}

// PatchTaskFields replaces a task's title and description.
func (c *Client) PatchTaskFields(ctx context.Context, id int64, title, description string) (domain.Task, error) {
	body := map[string]string{"title": title, "description": description}
	var out domain.Task
	if err := c.do(ctx, http.MethodPatch, taskPath(id), nil, body, &out); err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// DeleteTask deletes a task. Deleting a missing task surfaces the server's 404.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

// SendAICommand submits a free-text command. A 2xx reply carrying an
// assistant payload is returned as a value, so semantic failures stay distinct
// from transport and HTTP failures; any non-2xx reply is an *HTTPError.
func (c *Client) SendAICommand(ctx context.Context, command string) (domain.AIResponse, error) {
	const path = "/ai/command/"
	statusCode, payload, err := c.roundTrip(ctx, http.MethodPost, path, nil, map[string]string{"command": command})
	if err != nil {
		return domain.AIResponse{}, err
	}
	if !isSuccess(statusCode) {
		return domain.AIResponse{}, newHTTPError(http.MethodPost, path, statusCode, payload)
	}
	var out domain.AIResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return domain.AIResponse{}, fmt.Errorf("%s %s: %w", http.MethodPost, path, errors.Join(ErrDecode, err))
	}
	if !out.HasPayload() {
		return domain.AIResponse{}, fmt.Errorf("%s %s: %w", http.MethodPost, path, errors.Join(ErrDecode, errors.New("empty assistant payload")))
	}
	return out, nil
}

// do performs one JSON round trip and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	statusCode, payload, err := c.roundTrip(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if !isSuccess(statusCode) {
		return newHTTPError(method, path, statusCode, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(ErrDecode, err))
	}
	return nil
}

// roundTrip sends one request and returns the status and body.
func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	requestID := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return 0, nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Warn("api response read failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return 0, nil, &TransportError{Method: method, Path: path, Err: err}
	}
	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID, "elapsed", time.Since(started))
	return resp.StatusCode, payload, nil
}

// endpoint joins path and query onto the base URL.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// newHTTPError builds an HTTPError, lifting the server's message when present.
func newHTTPError(method, path string, statusCode int, payload []byte) *HTTPError {
	return &HTTPError{
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Message:    errorMessage(payload),
	}
}

// errorMessage extracts `error` (string or {message}) or `detail` from a body.
func errorMessage(payload []byte) string {
	var envelope struct {
		Error  json.RawMessage `json:"error"`
		Detail string          `json:"detail"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ""
	}
	if len(envelope.Error) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Error, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var structured struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &structured); err == nil {
			return strings.TrimSpace(structured.Message)
		}
	}
	return strings.TrimSpace(envelope.Detail)
}

// taskPath returns the item path for one task.
func taskPath(id int64) string {
	return fmt.Sprintf("/tasks/%d/", id)
}

// isSuccess reports whether a status code is 2xx.
func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
