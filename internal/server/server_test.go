// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/promptforge/internal/auth"
	"github.com/jeranaias/promptforge/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestServer(t *testing.T, mutate ...func(*Options)) *Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts := Options{
		Store:              st,
		Auth:               auth.NewService("test-secret", auth.WithBcryptCost(bcrypt.MinCost)),
		Logger:             zerolog.Nop(),
		CORSOrigins:        []string{"http://localhost:5173"},
		RateLimitPerMinute: -1,
		Version:            "test",
	}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		if srv.limiter != nil {
			srv.limiter.Close()
		}
	})
	return srv
}

type call struct {
	method string
	path   string
	body   any
	token  string
	cookie *http.Cookie
}

func do(t *testing.T, srv *Server, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func register(t *testing.T, srv *Server, username, email string) string {
	t.Helper()
	rec, body := do(t, srv, call{method: "POST", path: "/api/auth/register", body: map[string]string{
		"username": username,
		"email":    email,
		"password": "testpass123",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNew_RequiresStoreAndAuth(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer st.Close()
	_, err = New(Options{Store: st})
	assert.Error(t, err)
}

func TestNewServerStats(t *testing.T) {
	stats := NewServerStats()
	if stats.TotalRequests != 0 {
		t.Errorf("TotalRequests = %d, want 0", stats.TotalRequests)
	}
	if stats.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	rec, body := do(t, srv, call{method: "GET", path: "/api/health"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHandleHealth_DatabaseDown(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.store.Close())

	rec, body := do(t, srv, call{method: "GET", path: "/api/health"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)
	rec, body := do(t, srv, call{method: "GET", path: "/api/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
}

// =============================================================================
// AUTH
// =============================================================================

func TestRegisterThenConflict(t *testing.T) {
	srv := newTestServer(t)
	user := map[string]string{"username": "testuser", "email": "test@example.com", "password": "testpass123"}

	rec, body := do(t, srv, call{method: "POST", path: "/api/auth/register", body: user})
	require.Equal(t, http.StatusCreated, rec.Code, body)
	assert.Equal(t, true, body["success"])
	u := body["user"].(map[string]any)
	assert.Equal(t, "testuser", u["username"])
	assert.Equal(t, "test@example.com", u["email"])
	assert.NotContains(t, u, "password_hash")
	assert.NotContains(t, u, "PasswordHash")

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rec, body = do(t, srv, call{method: "POST", path: "/api/auth/register", body: user})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name string
		body any
	}{
		{"short username", map[string]string{"username": "ab", "email": "a@example.com", "password": "testpass123"}},
		{"bad email", map[string]string{"username": "alice", "email": "nope", "password": "testpass123"}},
		{"weak password", map[string]string{"username": "alice", "email": "a@example.com", "password": "short"}},
		{"empty body", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, srv, call{method: "POST", path: "/api/auth/register", body: tt.body})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "testuser", "test@example.com")

	rec, body := do(t, srv, call{method: "POST", path: "/api/auth/login", body: map[string]string{
		"email": "TEST@example.com", "password": "testpass123",
	}})
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	assert.NotNil(t, sessionCookie(rec))

	rec, body = do(t, srv, call{method: "POST", path: "/api/auth/login", body: map[string]string{
		"email": "test@example.com", "password": "wrongpass123",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", body["error"])

	rec, _ = do(t, srv, call{method: "POST", path: "/api/auth/login", body: map[string]string{
		"email": "nobody@example.com", "password": "testpass123",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	srv := newTestServer(t, func(o *Options) {
		o.Lockout = auth.NewLockout(auth.WithMaxAttempts(2), auth.WithLockoutDuration(time.Minute))
	})
	register(t, srv, "testuser", "test@example.com")
	wrong := map[string]string{"email": "test@example.com", "password": "wrongpass123"}

	rec, _ := do(t, srv, call{method: "POST", path: "/api/auth/login", body: wrong})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := do(t, srv, call{method: "POST", path: "/api/auth/login", body: wrong})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, body["error"], "Too many failed login attempts")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// The right password is refused too while locked.
	rec, _ = do(t, srv, call{method: "POST", path: "/api/auth/login", body: map[string]string{
		"email": "TEST@example.com", "password": "testpass123",
	}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Other accounts are unaffected.
	rec, _ = do(t, srv, call{method: "POST", path: "/api/auth/login", body: map[string]string{
		"email": "other@example.com", "password": "testpass123",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_WithCookieAndBearer(t *testing.T) {
	srv := newTestServer(t)
	rec, _ := do(t, srv, call{method: "POST", path: "/api/auth/register", body: map[string]string{
		"username": "testuser", "email": "test@example.com", "password": "testpass123",
	}})
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	rec, body := do(t, srv, call{method: "GET", path: "/api/auth/me", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "testuser", body["user"].(map[string]any)["username"])

	rec, _ = do(t, srv, call{method: "GET", path: "/api/auth/me", token: cookie.Value})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, srv, call{method: "GET", path: "/api/auth/me"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = do(t, srv, call{method: "GET", path: "/api/auth/me", token: "forged.token.value"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	srv := newTestServer(t)
	rec, body := do(t, srv, call{method: "POST", path: "/api/auth/logout"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
}

// =============================================================================
// GENERATE
// =============================================================================

func TestGeneratePrompt_Anonymous(t *testing.T) {
	srv := newTestServer(t)
	rec, body := do(t, srv, call{method: "POST", path: "/api/generate-prompt", body: map[string]any{
		"user_input":   "Create a website for a bakery",
		"target_tool":  "chatgpt",
		"prompt_style": "creative",
	}})
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, true, body["success"])

	p := body["prompt"].(map[string]any)
	assert.Contains(t, p["generated_prompt"], "Create a website for a bakery")
	assert.Equal(t, "chatgpt", p["target_tool"])
	assert.Equal(t, "creative", p["prompt_style"])
	assert.Nil(t, p["user_id"])
	assert.NotZero(t, p["id"])
}

func TestGeneratePrompt_OwnedBySession(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice", "alice@example.com")
	register(t, srv, "bob", "bob@example.com")

	// A body user_id naming someone else is ignored.
	rec, body := do(t, srv, call{method: "POST", path: "/api/generate-prompt", token: alice, body: map[string]any{
		"user_input": "a cat", "target_tool": "dalle", "prompt_style": "detailed", "user_id": 2,
	}})
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.EqualValues(t, 1, body["prompt"].(map[string]any)["user_id"])
}

func TestGeneratePrompt_Defaults(t *testing.T) {
	srv := newTestServer(t)
	rec, body := do(t, srv, call{method: "POST", path: "/api/generate-prompt", body: map[string]any{
		"user_input": "a bakery",
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	p := body["prompt"].(map[string]any)
	assert.Equal(t, "chatgpt", p["target_tool"])
	assert.Equal(t, "creative", p["prompt_style"])
}

func TestGeneratePrompt_UnknownPairUsesFallback(t *testing.T) {
	srv := newTestServer(t)
	rec, body := do(t, srv, call{method: "POST", path: "/api/generate-prompt", body: map[string]any{
		"user_input": "x", "target_tool": "other", "prompt_style": "creative",
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Generate content about: x", body["prompt"].(map[string]any)["generated_prompt"])
}

func TestGeneratePrompt_EmptyInput(t *testing.T) {
	srv := newTestServer(t)
	rec, body := do(t, srv, call{method: "POST", path: "/api/generate-prompt", body: map[string]any{
		"user_input": "   ", "target_tool": "chatgpt", "prompt_style": "creative",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user_input is required", body["error"])
}

// =============================================================================
// PROMPTS
// =============================================================================

func TestPrompts_RequireAuth(t *testing.T) {
	srv := newTestServer(t)
	for _, c := range []call{
		{method: "GET", path: "/api/prompts"},
		{method: "POST", path: "/api/prompts", body: map[string]string{}},
		{method: "GET", path: "/api/prompts/1"},
		{method: "PUT", path: "/api/prompts/1", body: map[string]string{}},
		{method: "DELETE", path: "/api/prompts/1"},
	} {
		rec, _ := do(t, srv, c)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", c.method, c.path)
	}
}

func TestPrompts_CRUD(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "alice", "alice@example.com")

	rec, body := do(t, srv, call{method: "POST", path: "/api/prompts", token: token, body: map[string]string{
		"user_input":       "a bakery",
		"generated_prompt": "Write about a bakery",
		"target_tool":      "chatgpt",
		"prompt_style":     "factual",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, body)
	id := int64(body["prompt"].(map[string]any)["id"].(float64))
	path := fmt.Sprintf("/api/prompts/%d", id)

	rec, body = do(t, srv, call{method: "GET", path: "/api/prompts", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, body = do(t, srv, call{method: "GET", path: path, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Write about a bakery", body["prompt"].(map[string]any)["generated_prompt"])

	rec, body = do(t, srv, call{method: "PUT", path: path, token: token, body: map[string]string{
		"generated_prompt": "Edited text",
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Edited text", body["prompt"].(map[string]any)["generated_prompt"])

	rec, _ = do(t, srv, call{method: "DELETE", path: path, token: token})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, srv, call{method: "GET", path: path, token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrompts_CreateValidation(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "alice", "alice@example.com")

	rec, _ := do(t, srv, call{method: "POST", path: "/api/prompts", token: token, body: map[string]string{
		"user_input": "x", "generated_prompt": "y", "target_tool": "nope", "prompt_style": "creative",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, srv, call{method: "POST", path: "/api/prompts", token: token, body: map[string]string{
		"user_input": "x", "generated_prompt": " ", "target_tool": "chatgpt", "prompt_style": "creative",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, srv, call{method: "GET", path: "/api/prompts/abc", token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrompts_OwnerOnly(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice", "alice@example.com")
	bob := register(t, srv, "bob", "bob@example.com")

	_, body := do(t, srv, call{method: "POST", path: "/api/generate-prompt", token: alice, body: map[string]any{
		"user_input": "a garden", "target_tool": "midjourney", "prompt_style": "creative",
	}})
	path := fmt.Sprintf("/api/prompts/%d", int64(body["prompt"].(map[string]any)["id"].(float64)))

	for _, c := range []call{
		{method: "GET", path: path, token: bob},
		{method: "PUT", path: path, token: bob, body: map[string]string{"generated_prompt": "mine now"}},
		{method: "DELETE", path: path, token: bob},
	} {
		rec, _ := do(t, srv, c)
		assert.Equal(t, http.StatusNotFound, rec.Code, c.method)
	}

	_, body = do(t, srv, call{method: "GET", path: "/api/prompts", token: bob})
	assert.EqualValues(t, 0, body["count"])

	rec, body := do(t, srv, call{method: "GET", path: path, token: alice})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["prompt"].(map[string]any)["generated_prompt"], "a garden")
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestCORS_AllowedOrigin(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfig_WildcardSubdomain(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"*.example.com"})
	assert.True(t, cfg.isOriginAllowed("https://app.example.com"))
	assert.False(t, cfg.isOriginAllowed("https://example.org"))
	assert.False(t, cfg.isOriginAllowed(""))
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, func(o *Options) { o.RateLimitPerMinute = 2 })

	for i := 0; i < 2; i++ {
		rec, _ := do(t, srv, call{method: "GET", path: "/api/health"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, body := do(t, srv, call{method: "GET", path: "/api/health"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, false, body["success"])
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Close()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "203.0.113.9:1234", "", "203.0.113.9"},
		{"untrusted proxy ignored", "203.0.113.9:1234", "198.51.100.1", "203.0.113.9"},
		{"trusted proxy honored", "127.0.0.1:1234", "198.51.100.1, 10.0.0.1", "198.51.100.1"},
		{"garbage header", "127.0.0.1:1234", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
