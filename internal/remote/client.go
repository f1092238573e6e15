// Package remote is the HTTP client for the translation service that runs
// subtitle jobs server-side.
package remote

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
	"sync"
	"time"
)

// DefaultBaseURL is the production translation service.
const DefaultBaseURL = "https://api.rxaigc.com"

// ErrUnauthorized means the session is missing or expired; the caller has to
// sign in again before retrying.
var ErrUnauthorized = errors.New("session expired or missing, please log in again")

// StatusError is returned for any non-2xx response other than 401.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Body)
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	YoutubeURL   string `json:"youtube_url"`
	ContentName  string `json:"content_name"`
	ChannelName  string `json:"channel_name"`
	CustomPrompt string `json:"custom_prompt"`
	SpecialTerms string `json:"special_terms"`
	Language     string `json:"language"`
}

// TaskStatus is the body of GET /api/tasks/{id}/status.
type TaskStatus struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

// Strategies is the body of GET /api/tasks/{id}/strategies.
type Strategies struct {
	Strategies []string `json:"strategies"`
}

// Client talks to the translation service.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	session string
}

// NewClient creates a client for baseURL. session, when set, is sent as the
// "session" cookie on every request.
func NewClient(baseURL, session string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetSession replaces the session credential used for later requests.
func (c *Client) SetSession(session string) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
}

// CreateTask submits a translation job and returns the server's task id.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var out struct {
		TaskID  string `json:"task_id"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	data, err := c.do(ctx, http.MethodPost, "/api/tasks", body)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			// FastAPI-style servers explain rejections in detail/message.
			if json.Unmarshal([]byte(se.Body), &out) == nil && (out.Detail != "" || out.Message != "") {
				return "", fmt.Errorf("create task: %s: %w", firstNonEmpty(out.Detail, out.Message), err)
			}
		}
		return "", fmt.Errorf("create task: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if out.TaskID == "" {
		return "", errors.New("create task: server did not return a task id")
	}
	return out.TaskID, nil
}

// TaskStatus fetches the current status of a task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(taskID)+"/status", nil)
	if err != nil {
		return nil, err
	}
	var st TaskStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

// Strategies fetches the translation strategies of a task.
func (c *Client) Strategies(ctx context.Context, taskID string) (*Strategies, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(taskID)+"/strategies", nil)
	if err != nil {
		return nil, err
	}
	var st Strategies
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode strategies: %w", err)
	}
	return &st, nil
}

// Subtitle downloads the translated SRT of a finished task.
func (c *Client) Subtitle(ctx context.Context, taskID string) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/subtitles/"+url.PathEscape(taskID), nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: session})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
