// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrLocked is returned while an identifier is locked out.
var ErrLocked = errors.New("too many failed login attempts")

const (
	// DefaultMaxAttempts is the number of consecutive failures before lockout.
	DefaultMaxAttempts = 5

	// DefaultLockoutDuration is how long a lockout lasts.
	DefaultLockoutDuration = 15 * time.Minute

	// sweepThreshold is the table size at which RecordFailure sweeps
	// stale records.
	sweepThreshold = 1024
)

// AttemptRecord tracks consecutive failed logins for one identifier.
type AttemptRecord struct {
	Count        int
	FirstAttempt time.Time
	LastAttempt  time.Time
	LockedUntil  time.Time
	LockoutCount int
}

func (a *AttemptRecord) locked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && now.Before(a.LockedUntil)
}

// =============================================================================
// LOCKOUT
// =============================================================================

// Lockout counts failed logins per identifier (normally the lowercased
// email) and refuses further attempts for a while once the limit is hit.
// State is in memory; a restart clears it.
type Lockout struct {
	mu          sync.Mutex
	attempts    map[string]*AttemptRecord
	maxAttempts int
	duration    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// LockoutOption configures a Lockout.
type LockoutOption func(*Lockout)

// WithMaxAttempts sets the failure limit. Values below 1 are ignored.
func WithMaxAttempts(n int) LockoutOption {
	return func(l *Lockout) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithLockoutDuration sets how long a lockout lasts.
func WithLockoutDuration(d time.Duration) LockoutOption {
	return func(l *Lockout) {
		if d > 0 {
			l.duration = d
		}
	}
}

// WithLockoutLogger sets the logger for lockout events.
func WithLockoutLogger(logger zerolog.Logger) LockoutOption {
	return func(l *Lockout) { l.logger = logger }
}

// WithLockoutClock replaces time.Now, for tests.
func WithLockoutClock(now func() time.Time) LockoutOption {
	return func(l *Lockout) { l.now = now }
}

// NewLockout creates a Lockout with the given options.
func NewLockout(opts ...LockoutOption) *Lockout {
	l := &Lockout{
		attempts:    make(map[string]*AttemptRecord),
		maxAttempts: DefaultMaxAttempts,
		duration:    DefaultLockoutDuration,
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check returns ErrLocked and the time left when identifier is locked out.
func (l *Lockout) Check(identifier string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.attempts[identifier]
	if !ok {
		return 0, nil
	}
	now := l.now()
	if record.locked(now) {
		return record.LockedUntil.Sub(now), ErrLocked
	}
	return 0, nil
}

// RecordFailure counts a failed login. It returns ErrLocked when this
// failure triggers the lockout.
func (l *Lockout) RecordFailure(identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	record, ok := l.attempts[identifier]
	if !ok {
		if len(l.attempts) >= sweepThreshold {
			l.sweepLocked(now)
		}
		record = &AttemptRecord{FirstAttempt: now}
		l.attempts[identifier] = record
	}
	if record.locked(now) {
		return ErrLocked
	}
	// An expired lockout starts a fresh series.
	if !record.LockedUntil.IsZero() {
		record.LockedUntil = time.Time{}
		record.Count = 0
		record.FirstAttempt = now
	}

	record.Count++
	record.LastAttempt = now
	l.logger.Info().
		Str("id", maskIdentifier(identifier)).
		Int("count", record.Count).
		Int("max", l.maxAttempts).
		Msg("AUTH_ATTEMPT_FAILED")

	if record.Count >= l.maxAttempts {
		record.LockedUntil = now.Add(l.duration)
		record.LockoutCount++
		l.logger.Warn().
			Str("id", maskIdentifier(identifier)).
			Dur("duration", l.duration).
			Int("lockout_number", record.LockoutCount).
			Msg("AUTH_LOCKOUT")
		return ErrLocked
	}
	return nil
}

// RecordSuccess clears the failure count for identifier.
func (l *Lockout) RecordSuccess(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, identifier)
}

// Status returns a copy of the record for identifier, or nil.
func (l *Lockout) Status(identifier string) *AttemptRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.attempts[identifier]
	if !ok {
		return nil
	}
	cp := *record
	return &cp
}

// Cleanup drops records whose lockout has expired or whose last failure is
// older than the lockout duration.
func (l *Lockout) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(l.now())
}

func (l *Lockout) sweepLocked(now time.Time) {
	for id, record := range l.attempts {
		if record.locked(now) {
			continue
		}
		if now.Sub(record.LastAttempt) > l.duration {
			delete(l.attempts, id)
		}
	}
}

// maskIdentifier keeps the first two characters and the domain of an email
// so logs do not carry the full address.
func maskIdentifier(id string) string {
	local, domain, hasDomain := strings.Cut(id, "@")
	if len(local) > 2 {
		local = local[:2]
	}
	masked := local + "***"
	if hasDomain {
		masked += "@" + domain
	}
	return masked
}
