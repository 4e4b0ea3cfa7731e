// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "promptforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_CreateAndLookupUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "testuser", "Test@Example.com", "hash")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "test@example.com", u.Email)

	byEmail, err := s.UserByEmail(ctx, "TEST@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", byID.Username)
	assert.WithinDuration(t, u.CreatedAt, byID.CreatedAt, time.Millisecond)
}

func TestStore_DuplicateUserConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "testuser", "test@example.com", "hash")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "other", "TEST@example.com", "hash")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.CreateUser(ctx, "TestUser", "other@example.com", "hash")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestStore_UserNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UserByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PromptLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "owner", "owner@example.com", "hash")
	require.NoError(t, err)

	p := &Prompt{
		UserInput:       "bakery website",
		GeneratedPrompt: "Act as a creative writing assistant. bakery website.",
		TargetTool:      "chatgpt",
		PromptStyle:     "creative",
		UserID:          &u.ID,
	}
	require.NoError(t, s.CreatePrompt(ctx, p))
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetPrompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.GeneratedPrompt, got.GeneratedPrompt)
	require.NotNil(t, got.UserID)
	assert.True(t, got.OwnedBy(u.ID))
	assert.False(t, got.OwnedBy(u.ID+1))

	updated, err := s.UpdatePromptText(ctx, p.ID, "edited text")
	require.NoError(t, err)
	assert.Equal(t, "edited text", updated.GeneratedPrompt)
	assert.Equal(t, "bakery website", updated.UserInput)

	require.NoError(t, s.DeletePrompt(ctx, p.ID))
	_, err = s.GetPrompt(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePrompt(ctx, p.ID), ErrNotFound)

	_, err = s.UpdatePromptText(ctx, p.ID, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AnonymousPrompt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Prompt{UserInput: "owl", GeneratedPrompt: "owl --v 6.1", TargetTool: "midjourney", PromptStyle: "factual"}
	require.NoError(t, s.CreatePrompt(ctx, p))

	got, err := s.GetPrompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.UserID)
	assert.False(t, got.OwnedBy(0))
}

func TestStore_ListPromptsNewestFirstAndScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	alice, err := s.CreateUser(ctx, "alice", "alice@example.com", "h")
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, "bob", "bob@example.com", "h")
	require.NoError(t, err)

	for _, input := range []string{"first", "second", "third"} {
		require.NoError(t, s.CreatePrompt(ctx, &Prompt{UserInput: input, GeneratedPrompt: input, TargetTool: "dalle", PromptStyle: "creative", UserID: &alice.ID}))
	}
	require.NoError(t, s.CreatePrompt(ctx, &Prompt{UserInput: "bob's", GeneratedPrompt: "x", TargetTool: "dalle", PromptStyle: "creative", UserID: &bob.ID}))

	list, err := s.ListPrompts(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].UserInput)
	assert.Equal(t, "first", list[2].UserInput)

	page, err := s.ListPrompts(ctx, alice.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0].UserInput)

	empty, err := s.ListPrompts(ctx, 999, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pf.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.CreateUser(context.Background(), "keep", "keep@example.com", "h")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.UserByEmail(context.Background(), "keep@example.com")
	assert.NoError(t, err)
}
