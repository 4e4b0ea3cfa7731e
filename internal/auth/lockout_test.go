// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLockout(clock *fakeClock) *Lockout {
	return NewLockout(
		WithMaxAttempts(3),
		WithLockoutDuration(10*time.Minute),
		WithLockoutClock(clock.Now),
	)
}

func TestLockout_LocksAfterMaxFailures(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := newTestLockout(clock)

	require.NoError(t, l.RecordFailure("a@example.com"))
	require.NoError(t, l.RecordFailure("a@example.com"))
	_, err := l.Check("a@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, l.RecordFailure("a@example.com"), ErrLocked)

	remaining, err := l.Check("a@example.com")
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, 10*time.Minute, remaining)

	// Other identifiers are unaffected.
	_, err = l.Check("b@example.com")
	assert.NoError(t, err)
}

func TestLockout_ExpiresAndStartsFresh(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := newTestLockout(clock)
	for i := 0; i < 3; i++ {
		_ = l.RecordFailure("a@example.com")
	}

	clock.Advance(10*time.Minute + time.Second)
	_, err := l.Check("a@example.com")
	require.NoError(t, err)

	require.NoError(t, l.RecordFailure("a@example.com"))
	status := l.Status("a@example.com")
	require.NotNil(t, status)
	assert.Equal(t, 1, status.Count)
	assert.Equal(t, 1, status.LockoutCount)
}

func TestLockout_SuccessResets(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	l := newTestLockout(clock)
	_ = l.RecordFailure("a@example.com")
	_ = l.RecordFailure("a@example.com")

	l.RecordSuccess("a@example.com")
	assert.Nil(t, l.Status("a@example.com"))
	require.NoError(t, l.RecordFailure("a@example.com"))
}

func TestLockout_Cleanup(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	l := newTestLockout(clock)
	_ = l.RecordFailure("stale@example.com")
	for i := 0; i < 3; i++ {
		_ = l.RecordFailure("locked@example.com")
	}

	clock.Advance(5 * time.Minute)
	_ = l.RecordFailure("recent@example.com")
	clock.Advance(6 * time.Minute)
	l.Cleanup()

	assert.Nil(t, l.Status("stale@example.com"))
	assert.Nil(t, l.Status("locked@example.com"), "lockout expired")
	assert.NotNil(t, l.Status("recent@example.com"))
}

func TestMaskIdentifier(t *testing.T) {
	assert.Equal(t, "al***@example.com", maskIdentifier("alice@example.com"))
	assert.Equal(t, "a***@x.io", maskIdentifier("a@x.io"))
	assert.Equal(t, "us***", maskIdentifier("username"))
}
