// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestDismissHub_AcquireRelease(t *testing.T) {
	hub := NewDismissHub()
	release := hub.Acquire("x", func() Rect { return Rect{W: 5, H: 1} }, func() {})
	assert.Equal(t, 1, hub.Len())

	release()
	release()
	assert.Equal(t, 0, hub.Len(), "release is idempotent")
}

func TestDismissHub_DispatchOnlyOutside(t *testing.T) {
	hub := NewDismissHub()
	var inside, outside int
	hub.Acquire("in", func() Rect { return Rect{X: 0, Y: 0, W: 10, H: 2} }, func() { inside++ })
	hub.Acquire("out", func() Rect { return Rect{X: 20, Y: 0, W: 10, H: 2} }, func() { outside++ })

	n := hub.Dispatch(tea.MouseMsg{X: 3, Y: 1, Type: tea.MouseLeft})
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, inside)
	assert.Equal(t, 1, outside)
}

func TestDismissHub_CallbackMayRelease(t *testing.T) {
	hub := NewDismissHub()
	var release func()
	release = hub.Acquire("self", func() Rect { return Rect{} }, func() { release() })

	hub.Dispatch(tea.MouseMsg{X: 1, Y: 1, Type: tea.MouseLeft})
	assert.Equal(t, 0, hub.Len())
}

func TestDismissHub_IgnoresNonPress(t *testing.T) {
	hub := NewDismissHub()
	called := false
	hub.Acquire("x", func() Rect { return Rect{} }, func() { called = true })

	for _, typ := range []tea.MouseEventType{tea.MouseRelease, tea.MouseMotion, tea.MouseWheelUp} {
		hub.Dispatch(tea.MouseMsg{X: 9, Y: 9, Type: typ})
	}
	assert.False(t, called)
}
