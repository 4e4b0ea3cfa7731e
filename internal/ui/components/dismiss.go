// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// HIT REGIONS
// =============================================================================

// Rect is a screen region in cells. The zero Rect contains nothing.
type Rect struct {
	X, Y int
	W, H int
}

// Contains reports whether the cell (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// =============================================================================
// DISMISS HUB
// =============================================================================

// DismissHub routes pointer presses to open overlays that want to close when
// the user clicks elsewhere. Each overlay holds a listener only while open:
// Acquire on open, call the returned release on every way out.
type DismissHub struct {
	mu        sync.Mutex
	next      uint64
	listeners map[uint64]*dismissListener
}

type dismissListener struct {
	id        string
	bounds    func() Rect
	onOutside func()
}

// NewDismissHub creates an empty hub.
func NewDismissHub() *DismissHub {
	return &DismissHub{listeners: make(map[uint64]*dismissListener)}
}

// Acquire registers onOutside for presses outside bounds. bounds is read at
// dispatch time so the region can follow layout changes. The returned
// release is idempotent.
func (h *DismissHub) Acquire(id string, bounds func() Rect, onOutside func()) (release func()) {
	h.mu.Lock()
	h.next++
	key := h.next
	h.listeners[key] = &dismissListener{id: id, bounds: bounds, onOutside: onOutside}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, key)
			h.mu.Unlock()
		})
	}
}

// Dispatch delivers a mouse event. Left-button presses outside a listener's
// bounds invoke its onOutside; everything else is ignored. Returns the number
// of listeners notified.
func (h *DismissHub) Dispatch(msg tea.MouseMsg) int {
	if msg.Type != tea.MouseLeft {
		return 0
	}

	// Callbacks usually release their own listener, so collect first.
	h.mu.Lock()
	var outside []func()
	for _, l := range h.listeners {
		if !l.bounds().Contains(msg.X, msg.Y) {
			outside = append(outside, l.onOutside)
		}
	}
	h.mu.Unlock()

	for _, fn := range outside {
		fn()
	}
	return len(outside)
}

// Len returns the number of live listeners.
func (h *DismissHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Holders returns the ids of live listeners, in no particular order.
func (h *DismissHub) Holders() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.listeners))
	for _, l := range h.listeners {
		ids = append(ids, l.id)
	}
	return ids
}
