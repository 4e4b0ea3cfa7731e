// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/jeranaias/promptforge/internal/client"
	"github.com/jeranaias/promptforge/internal/prompt"
)

// generatedMsg carries a finished generation.
type generatedMsg struct {
	result prompt.Result
	err    error
}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	err error
}

// savedMsg reports a prompt save.
type savedMsg struct {
	prompt *client.Prompt
	err    error
}

// sessionMsg reports the startup session check.
type sessionMsg struct {
	user *client.User
	err  error
}

// loggedOutMsg reports a logout request.
type loggedOutMsg struct {
	err error
}

// badge identifies a transient status badge.
type badge int

const (
	badgeCopied badge = iota
	badgeSaved
)

// badgeExpiredMsg hides a badge unless a newer one replaced it.
type badgeExpiredMsg struct {
	badge badge
	seq   int
}
