package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

// Client is a minimal board HTTP API client.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		Timeout: 10 * time.Second,
	}
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an APIError with a 404 status.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// ColumnParams carries the fields for creating a column.
type ColumnParams struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Order       *int   `json:"order,omitempty"`
}

// ColumnPatch carries partial column updates. Nil fields are left unchanged.
type ColumnPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Order       *int    `json:"order,omitempty"`
}

// TaskParams carries the fields for creating a task.
type TaskParams struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ColumnID    string `json:"columnId"`
	Order       *int   `json:"order,omitempty"`
	AssigneeID  string `json:"assigneeId,omitempty"`
}

// TaskPatch carries partial task updates. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Order       *int    `json:"order,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
}

// Board fetches the full board.
func (c *Client) Board(ctx context.Context) (domain.Board, error) {
	var board domain.Board
	err := c.do(ctx, http.MethodGet, "api/board", nil, &board)
	return board, err
}

// CreateColumn creates a column.
func (c *Client) CreateColumn(ctx context.Context, params ColumnParams) (domain.Column, error) {
	var col domain.Column
	err := c.do(ctx, http.MethodPost, "api/columns", params, &col)
	return col, err
}

// UpdateColumn applies a partial update to a column.
func (c *Client) UpdateColumn(ctx context.Context, id string, patch ColumnPatch) (domain.Column, error) {
	var col domain.Column
	endpoint := fmt.Sprintf("api/columns/%s", url.PathEscape(id))
	err := c.do(ctx, http.MethodPatch, endpoint, patch, &col)
	return col, err
}

// DeleteColumn deletes a column. Columns that still contain tasks are rejected
// by the server.
func (c *Client) DeleteColumn(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("api/columns/%s", url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// ReorderColumns persists a new left-to-right column sequence.
func (c *Client) ReorderColumns(ctx context.Context, columnIDs []string) error {
	body := map[string]any{"columnIds": columnIDs}
	return c.do(ctx, http.MethodPost, "api/columns/reorder", body, nil)
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, params TaskParams) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodPost, "api/tasks", params, &task)
	return task, err
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (domain.Task, error) {
	var task domain.Task
	endpoint := fmt.Sprintf("api/tasks/%s", url.PathEscape(id))
	err := c.do(ctx, http.MethodPatch, endpoint, patch, &task)
	return task, err
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("api/tasks/%s", url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// MoveTask reassigns a task to another column without touching its order.
func (c *Client) MoveTask(ctx context.Context, id, columnID string) (domain.Task, error) {
	var task domain.Task
	body := map[string]any{"columnId": columnID}
	endpoint := fmt.Sprintf("api/tasks/%s/move", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, body, &task)
	return task, err
}

// ReorderTasks persists a new task sequence; order values become array indices.
func (c *Client) ReorderTasks(ctx context.Context, taskIDs []string) error {
	body := map[string]any{"taskIds": taskIDs}
	return c.do(ctx, http.MethodPost, "api/tasks/reorder", body, nil)
}

// DraftTask asks the server to draft a task title and description from a prompt.
func (c *Client) DraftTask(ctx context.Context, prompt string) (domain.TaskDraft, error) {
	var draft domain.TaskDraft
	body := map[string]any{"prompt": prompt}
	err := c.do(ctx, http.MethodPost, "api/tasks/draft", body, &draft)
	return draft, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return err
		}
		buf.Write(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return sonic.Unmarshal(raw, out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
