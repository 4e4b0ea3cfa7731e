// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/promptforge/internal/auth"
	"github.com/jeranaias/promptforge/internal/prompt"
	"github.com/jeranaias/promptforge/internal/server"
	"github.com/jeranaias/promptforge/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newLiveServer runs the real API against a temp database.
func newLiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv, err := server.New(server.Options{
		Store:              st,
		Auth:               auth.NewService("client-test", auth.WithBcryptCost(bcrypt.MinCost)),
		Logger:             zerolog.Nop(),
		RateLimitPerMinute: -1,
		Version:            "test",
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_EndToEnd(t *testing.T) {
	ts := newLiveServer(t)
	c := New(ts.URL + "/")
	ctx := context.Background()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "test", h.Version)

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	sess, err := c.Register(ctx, "testuser", "test@example.com", "testpass123")
	require.NoError(t, err)
	assert.Equal(t, "testuser", sess.User.Username)
	assert.Equal(t, sess.Token, c.Token())

	_, err = c.Register(ctx, "testuser", "test@example.com", "testpass123")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, me.ID)

	res, err := c.Generate(ctx, prompt.Request{Input: "a bakery", Tool: prompt.ToolChatGPT, Style: prompt.StyleFactual})
	require.NoError(t, err)
	assert.Equal(t, prompt.SourceRemote, res.Source)
	assert.Contains(t, res.Text, "a bakery")
	assert.NotZero(t, res.PromptID)

	saved, err := c.SavePrompt(ctx, SaveRequest{
		UserInput:       "a bakery",
		GeneratedPrompt: "edited",
		TargetTool:      prompt.ToolChatGPT,
		PromptStyle:     prompt.StyleFactual,
	})
	require.NoError(t, err)

	list, err := c.ListPrompts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, saved.ID, list[0].ID)

	updated, err := c.UpdatePrompt(ctx, saved.ID, "edited again")
	require.NoError(t, err)
	assert.Equal(t, "edited again", updated.GeneratedPrompt)

	got, err := c.GetPrompt(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited again", got.GeneratedPrompt)

	require.NoError(t, c.DeletePrompt(ctx, saved.ID))
	_, err = c.GetPrompt(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Token())

	sess, err = c.Login(ctx, "test@example.com", "testpass123")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	_, err = c.Login(ctx, "test@example.com", "wrongpass123")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Invalid email or password", ErrorMessage(err, "Login failed"))
}

func TestClient_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url, WithTimeout(time.Second))
	_, err := c.Generate(context.Background(), prompt.Request{Input: "x", Tool: "chatgpt", Style: "creative"})
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, "Network error. Please try again.", ErrorMessage(err, "Login failed"))
}

func TestClient_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(ts.URL).Health(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrNetwork))
}

func TestClient_SuccessFalseIsAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"nope"}`))
	}))
	defer ts.Close()

	_, err := New(ts.URL).Generate(context.Background(), prompt.Request{Input: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.Status)
	assert.Equal(t, "nope", apiErr.Message)
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Login failed", ErrorMessage(err, "Login failed"))
}

func TestClient_SendsBearerToken(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true,"prompts":[]}`))
	}))
	defer ts.Close()

	list, err := New(ts.URL, WithToken("abc")).ListPrompts(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, "Bearer abc", got)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil, "x"))
	assert.Equal(t, "fallback", ErrorMessage(errors.New("boom"), "fallback"))
	assert.Equal(t, "Passwords differ", ErrorMessage(&APIError{Status: 400, Message: "Passwords differ"}, "x"))
}
