// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package client talks to the promptforge HTTP API.
//
// A Client carries the session token and sends it as a bearer token. It
// implements prompt.Remote, so a prompt.Generator can try the service first
// and fall back to local templates.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/promptforge/internal/prompt"
)

const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 4 * 1024 * 1024
)

var (
	// ErrUnauthorized is matched by APIErrors with status 401.
	ErrUnauthorized = errors.New("not logged in")
	// ErrNotFound is matched by APIErrors with status 404.
	ErrNotFound = errors.New("not found")
	// ErrNetwork wraps transport failures (connection refused, timeouts).
	ErrNetwork = errors.New("network error")
)

// APIError is a non-2xx response. Message is the server's "error" text.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// Is lets errors.Is match status-based sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// User is an account as returned by the API.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Prompt is a stored prompt as returned by the API.
type Prompt struct {
	ID              int64     `json:"id"`
	UserInput       string    `json:"user_input"`
	GeneratedPrompt string    `json:"generated_prompt"`
	TargetTool      string    `json:"target_tool"`
	PromptStyle     string    `json:"prompt_style"`
	UserID          *int64    `json:"user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Health is the /api/health payload.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Session is the result of a login or registration.
type Session struct {
	User  User
	Token string
}

// envelope is the common response shape. Payload fields are decoded as
// needed by each call.
type envelope struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	User    *User    `json:"user"`
	Token   string   `json:"token"`
	Prompt  *Prompt  `json:"prompt"`
	Prompts []Prompt `json:"prompts"`
	Status  string   `json:"status"`
	Version string   `json:"version"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is an API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d, Transport: c.httpClient.Transport}
		}
	}
}

// WithToken starts the client with a saved session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the current session token, or "".
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// do sends a JSON request and decodes the envelope. Non-2xx responses and
// success:false bodies become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	var env envelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			if resp.StatusCode >= 300 {
				return nil, &APIError{Status: resp.StatusCode}
			}
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	if resp.StatusCode >= 300 || !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	return &env, nil
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Health checks the service.
func (c *Client) Health(ctx context.Context) (Health, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return Health{}, err
	}
	return Health{Status: env.Status, Version: env.Version}, nil
}

// Register creates an account and adopts its session.
func (c *Client) Register(ctx context.Context, username, email, password string) (*Session, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return c.adopt(env)
}

// Login starts a session and adopts its token.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return c.adopt(env)
}

func (c *Client) adopt(env *envelope) (*Session, error) {
	if env.User == nil {
		return nil, errors.New("response is missing user")
	}
	c.SetToken(env.Token)
	return &Session{User: *env.User, Token: env.Token}, nil
}

// Me returns the logged-in user. Without a token it returns ErrUnauthorized
// without a round trip.
func (c *Client) Me(ctx context.Context) (*User, error) {
	if c.Token() == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "Authentication required"}
	}
	env, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}
	if env.User == nil {
		return nil, errors.New("response is missing user")
	}
	return env.User, nil
}

// Logout ends the session. The local token is cleared even when the request
// fails.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil)
	c.SetToken("")
	return err
}

var _ prompt.Remote = (*Client)(nil)

// Generate renders a prompt on the service. It implements prompt.Remote.
func (c *Client) Generate(ctx context.Context, req prompt.Request) (prompt.Result, error) {
	body := map[string]any{
		"user_input":   req.Input,
		"target_tool":  req.Tool,
		"prompt_style": req.Style,
	}
	if req.UserID != nil {
		body["user_id"] = *req.UserID
	}
	env, err := c.do(ctx, http.MethodPost, "/api/generate-prompt", body)
	if err != nil {
		return prompt.Result{}, err
	}
	if env.Prompt == nil {
		return prompt.Result{}, errors.New("response is missing prompt")
	}
	return prompt.Result{
		Text:     env.Prompt.GeneratedPrompt,
		Source:   prompt.SourceRemote,
		PromptID: env.Prompt.ID,
	}, nil
}

// SaveRequest is the body of a prompt save.
type SaveRequest struct {
	UserInput       string `json:"user_input"`
	GeneratedPrompt string `json:"generated_prompt"`
	TargetTool      string `json:"target_tool"`
	PromptStyle     string `json:"prompt_style"`
}

// SavePrompt stores a prompt for the logged-in user.
func (c *Client) SavePrompt(ctx context.Context, req SaveRequest) (*Prompt, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/prompts", req)
	if err != nil {
		return nil, err
	}
	return promptOf(env)
}

// ListPrompts returns the user's prompts, newest first.
func (c *Client) ListPrompts(ctx context.Context, limit, offset int) ([]Prompt, error) {
	path := fmt.Sprintf("/api/prompts?limit=%d&offset=%d", limit, offset)
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if env.Prompts == nil {
		return []Prompt{}, nil
	}
	return env.Prompts, nil
}

// GetPrompt fetches one of the user's prompts.
func (c *Client) GetPrompt(ctx context.Context, id int64) (*Prompt, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/prompts/%d", id), nil)
	if err != nil {
		return nil, err
	}
	return promptOf(env)
}

// UpdatePrompt replaces a prompt's generated text.
func (c *Client) UpdatePrompt(ctx context.Context, id int64, text string) (*Prompt, error) {
	env, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/prompts/%d", id), map[string]string{
		"generated_prompt": text,
	})
	if err != nil {
		return nil, err
	}
	return promptOf(env)
}

// DeletePrompt removes a prompt.
func (c *Client) DeletePrompt(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/prompts/%d", id), nil)
	return err
}

func promptOf(env *envelope) (*Prompt, error) {
	if env.Prompt == nil {
		return nil, errors.New("response is missing prompt")
	}
	return env.Prompt, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// ErrorMessage maps err to the text shown to users. fallback is used for API
// errors without a server message.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return "Network error. Please try again."
	default:
		return fallback
	}
}
