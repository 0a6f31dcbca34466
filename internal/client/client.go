// Package client is a Go client for the issue desk HTTP and websocket API.
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
	"strconv"
	"strings"
	"time"

	"github.com/sumire/issuedesk/internal/domain"
)

const defaultTimeout = 15 * time.Second

// Client calls the REST API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Error is a non-2xx API response. It unwraps to the matching domain error,
// so callers can use errors.Is with domain.ErrForbidden and friends.
type Error struct {
	Status  int
	Code    string
	Message string
	Details []FieldError
}

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		if len(e.Details) > 0 {
			return &domain.ValidationError{Field: e.Details[0].Field, Message: e.Details[0].Message}
		}
		return domain.ErrInvalidInput
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	}
	return nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string       `json:"code"`
		Message string       `json:"message"`
		Details []FieldError `json:"details"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s response (status %d): %w", method, path, resp.StatusCode, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return nil
}

// CreateIssueRequest holds the fields of a new issue.
type CreateIssueRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    domain.Category `json:"category"`
	Priority    domain.Priority `json:"priority"`
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateIssue(ctx context.Context, req CreateIssueRequest) (*domain.Issue, error) {
	var issue domain.Issue
	if err := c.do(ctx, http.MethodPost, "/api/v1/issues", req, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (c *Client) GetIssue(ctx context.Context, id string) (*domain.Issue, error) {
	var issue domain.Issue
	if err := c.do(ctx, http.MethodGet, "/api/v1/issues/"+url.PathEscape(id), nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// MyIssues returns the issues filed by the authenticated user.
func (c *Client) MyIssues(ctx context.Context) ([]domain.Issue, error) {
	var issues []domain.Issue
	if err := c.do(ctx, http.MethodGet, "/api/v1/issues/my", nil, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// AssignedIssues returns the issues assigned to the authenticated user.
func (c *Client) AssignedIssues(ctx context.Context) ([]domain.Issue, error) {
	var issues []domain.Issue
	if err := c.do(ctx, http.MethodGet, "/api/v1/issues/assigned", nil, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// ListIssues returns one page of every issue. Admin only.
func (c *Client) ListIssues(ctx context.Context, page, limit int) (*domain.IssuePage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/issues"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result domain.IssuePage
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateStatus moves an issue. A zero version skips the staleness check.
func (c *Client) UpdateStatus(ctx context.Context, id string, status domain.IssueStatus, version int64) (*domain.Issue, error) {
	body := map[string]any{"status": status}
	if version > 0 {
		body["version"] = version
	}

	var issue domain.Issue
	if err := c.do(ctx, http.MethodPut, "/api/v1/issues/"+url.PathEscape(id)+"/status", body, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Assign sets the assignee by display name; an empty name unassigns.
func (c *Client) Assign(ctx context.Context, id, assignedTo string, version int64) (*domain.Issue, error) {
	body := map[string]any{"assigned_to": assignedTo}
	if version > 0 {
		body["version"] = version
	}

	var issue domain.Issue
	if err := c.do(ctx, http.MethodPut, "/api/v1/issues/"+url.PathEscape(id)+"/assign", body, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (c *Client) Comment(ctx context.Context, id, text string) (*domain.Issue, error) {
	var issue domain.Issue
	if err := c.do(ctx, http.MethodPost, "/api/v1/issues/"+url.PathEscape(id)+"/comment",
		map[string]string{"text": text}, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (c *Client) Notifications(ctx context.Context) ([]domain.Notification, error) {
	var list []domain.Notification
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) MarkRead(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	if err := c.do(ctx, http.MethodPut, "/api/v1/notifications/"+url.PathEscape(id)+"/read", nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) MarkAllRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/v1/notifications/read-all", nil, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

func (c *Client) Users(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodPut, "/api/v1/users/"+url.PathEscape(id)+"/role",
		map[string]domain.Role{"role": role}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
