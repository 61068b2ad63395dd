// Package agent talks to a coding agent's HTTP session API.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// SessionInfo describes one agent session.
type SessionInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SessionStatus is the agent's view of a session's state.
type SessionStatus struct {
	SessionID    string `json:"session_id"`
	Status       string `json:"status"`
	MessageCount int    `json:"message_count"`
}

// ToolCall is a tool invocation recorded in an agent message.
type ToolCall struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Message is one entry of a session's transcript.
type Message struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp string     `json:"timestamp"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// SessionOutput is the body of GET /session/{id}/messages.
type SessionOutput struct {
	SessionID    string    `json:"session_id"`
	Messages     []Message `json:"messages"`
	LastActivity string    `json:"last_activity"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenCode API error: %d %s - %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

type contentRequest struct {
	Content string `json:"content"`
}

// Client is an agent API client rooted at one base URL.
type Client struct {
	baseURL      string
	http         *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPollInterval sets how often WatchMessages polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient returns a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: defaultHTTPTimeout},
		logger:       slog.Default(),
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Prompt sends a prompt to a session.
func (c *Client) Prompt(ctx context.Context, sessionID, content string) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "prompt"), contentRequest{Content: content}, nil)
}

// Message sends a message to a session.
func (c *Client) Message(ctx context.Context, sessionID, content string) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "message"), contentRequest{Content: content}, nil)
}

// ListSessions returns every session the agent knows about.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var out []SessionInfo
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Status returns a session's status.
func (c *Client) Status(ctx context.Context, sessionID string) (SessionStatus, error) {
	var out SessionStatus
	err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "status"), nil, &out)
	return out, err
}

// Messages returns a session's transcript. A positive limit keeps only the
// first limit messages.
func (c *Client) Messages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	var out SessionOutput
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "messages"), nil, &out); err != nil {
		return nil, err
	}
	msgs := out.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

// Health reports whether GET /health answers 2xx. Transport failures are
// returned as errors; a non-2xx answer is (false, nil).
func (c *Client) Health(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false, fmt.Errorf("building health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return isSuccess(resp.StatusCode), nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("agent request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if !isSuccess(resp.StatusCode) {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func sessionPath(sessionID, leaf string) string {
	return "/session/" + url.PathEscape(sessionID) + "/" + leaf
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
