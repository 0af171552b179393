// Package backend talks to the hitdesk backend API: accounts, workspaces,
// collections, environments and remote history.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is where the backend listens during local development.
const DefaultBaseURL = "http://localhost:5000/api"

// DefaultTimeout bounds each backend call.
const DefaultTimeout = 30 * time.Second

// ErrUnauthorized matches any APIError with status 401.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// TokenSource supplies the bearer token for backend calls and forgets it
// when the backend rejects it.
type TokenSource interface {
	Token() string
	ClearToken() error
}

// Client is a backend API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *hithttp.Client
	tokens  TokenSource
	limiter *rate.Limiter
	logger  *slog.Logger
}

type Option func(*Client)

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = hithttp.NewClient(hithttp.WithTimeout(DefaultTimeout))
	}
	return c
}

// WithHTTPClient replaces the dispatcher used for backend calls.
func WithHTTPClient(h *hithttp.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithRateLimit throttles calls to rps requests per second. Zero or less disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a token. The token is returned, not stored.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body, err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	parsed := gjson.ParseBytes(body)
	token := parsed.Get("token").String()
	if token == "" {
		return nil, errors.New("login response carried no token")
	}
	return &LoginResult{User: decodeUser(parsed.Get("user")), Token: token}, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	return err
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	body, err := c.do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	user := decodeUser(gjson.GetBytes(body, "user"))
	return &user, nil
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	body, err := c.do(ctx, http.MethodGet, "/workspaces", nil)
	if err != nil {
		return nil, err
	}
	return decodeList(body, DecodeWorkspace), nil
}

func (c *Client) CreateWorkspace(ctx context.Context, name, description string) (*Workspace, error) {
	body, err := c.do(ctx, http.MethodPost, "/workspaces", map[string]string{
		"name":        name,
		"description": description,
	})
	if err != nil {
		return nil, err
	}
	ws := DecodeWorkspace(gjson.ParseBytes(body))
	return &ws, nil
}

func (c *Client) ListCollections(ctx context.Context, workspaceID string) ([]Collection, error) {
	body, err := c.do(ctx, http.MethodGet, scoped("/collections", workspaceID), nil)
	if err != nil {
		return nil, err
	}
	return decodeList(body, DecodeCollection), nil
}

func (c *Client) CreateCollection(ctx context.Context, workspaceID, name string) (*Collection, error) {
	body, err := c.do(ctx, http.MethodPost, "/collections", map[string]string{
		"workspace_id": workspaceID,
		"name":         name,
	})
	if err != nil {
		return nil, err
	}
	col := DecodeCollection(gjson.ParseBytes(body))
	return &col, nil
}

func (c *Client) ListEnvironments(ctx context.Context, workspaceID string) ([]Environment, error) {
	body, err := c.do(ctx, http.MethodGet, scoped("/environments", workspaceID), nil)
	if err != nil {
		return nil, err
	}
	return decodeList(body, DecodeEnvironment), nil
}

func (c *Client) CreateEnvironment(ctx context.Context, workspaceID, name string, variables map[string]any) (*Environment, error) {
	body, err := c.do(ctx, http.MethodPost, "/environments", map[string]any{
		"workspace_id": workspaceID,
		"name":         name,
		"variables":    variables,
	})
	if err != nil {
		return nil, err
	}
	e := DecodeEnvironment(gjson.ParseBytes(body))
	return &e, nil
}

// ListHistory returns the workspace history, normalizing legacy entries.
func (c *Client) ListHistory(ctx context.Context, workspaceID string) ([]HistoryRecord, error) {
	body, err := c.do(ctx, http.MethodGet, scoped("/history", workspaceID), nil)
	if err != nil {
		return nil, err
	}
	return decodeList(body, decodeHistory), nil
}

// CreateHistory persists one history entry and returns the id the backend assigned.
func (c *Client) CreateHistory(ctx context.Context, payload HistoryPayload) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/history", payload)
	if err != nil {
		return "", err
	}
	return idOf(gjson.ParseBytes(body)), nil
}

func scoped(path, workspaceID string) string {
	return path + "?workspace_id=" + url.QueryEscape(workspaceID)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	ex := &hithttp.Exchange{
		Method:  method,
		URL:     c.baseURL + path,
		Headers: hithttp.Headers{{Key: "Content-Type", Value: "application/json"}},
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		ex.Body = string(data)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			ex.Headers = append(ex.Headers, hithttp.Header{Key: hithttp.AuthorizationHeader, Value: "Bearer " + token})
		}
	}

	out := c.http.Dispatch(ctx, ex)
	if out.Err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, out.Err)
	}
	c.logger.Debug("backend call", "method", method, "path", path, "status", out.StatusCode, "elapsed", out.Elapsed)

	if out.StatusCode == http.StatusUnauthorized && c.tokens != nil {
		if err := c.tokens.ClearToken(); err != nil {
			c.logger.Warn("could not clear rejected token", "error", err)
		}
	}
	if out.StatusCode < 200 || out.StatusCode >= 300 {
		return nil, &APIError{StatusCode: out.StatusCode, Message: errorMessage(out.Body, out.StatusCode)}
	}
	return out.Body, nil
}

func errorMessage(body []byte, status int) string {
	if msg := gjson.GetBytes(body, "message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String && msg.String() != "" {
		return msg.String()
	}
	return http.StatusText(status)
}
