// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const promptColumns = "id, user_input, generated_prompt, target_tool, prompt_style, user_id, created_at, updated_at"

// DefaultListLimit caps ListPrompts when no limit is given.
const DefaultListLimit = 50

// CreatePrompt inserts p and fills in its ID and timestamps.
func (s *Store) CreatePrompt(ctx context.Context, p *Prompt) error {
	now, ms := s.timestamp()

	var userID sql.NullInt64
	if p.UserID != nil {
		userID = sql.NullInt64{Int64: *p.UserID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO prompts (user_input, generated_prompt, target_tool, prompt_style, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserInput, p.GeneratedPrompt, p.TargetTool, p.PromptStyle, userID, ms, ms)
	if err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPrompt returns the prompt with the given id.
func (s *Store) GetPrompt(ctx context.Context, id int64) (*Prompt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id)
	p, err := scanPrompt(row)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPrompts returns a user's prompts, newest first.
func (s *Store) ListPrompts(ctx context.Context, userID int64, limit, offset int) ([]*Prompt, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	prompts := []*Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return prompts, nil
}

// UpdatePromptText replaces the generated prompt text (after a user edit).
func (s *Store) UpdatePromptText(ctx context.Context, id int64, text string) (*Prompt, error) {
	_, ms := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`UPDATE prompts SET generated_prompt = ?, updated_at = ? WHERE id = ?`, text, ms, id)
	if err != nil {
		return nil, fmt.Errorf("update prompt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetPrompt(ctx, id)
}

// DeletePrompt removes a prompt.
func (s *Store) DeletePrompt(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPrompt(row scanner) (*Prompt, error) {
	var p Prompt
	var userID sql.NullInt64
	var created, updated int64
	err := row.Scan(&p.ID, &p.UserInput, &p.GeneratedPrompt, &p.TargetTool, &p.PromptStyle, &userID, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan prompt: %w", err)
	}
	if userID.Valid {
		id := userID.Int64
		p.UserID = &id
	}
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}
