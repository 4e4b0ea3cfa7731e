// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Prompt is a generated prompt. UserID is nil for anonymous generations.
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

// OwnedBy reports whether the prompt belongs to userID.
func (p *Prompt) OwnedBy(userID int64) bool {
	return p.UserID != nil && *p.UserID == userID
}
