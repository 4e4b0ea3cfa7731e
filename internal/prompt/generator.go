// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"context"
	"errors"

	"github.com/jeranaias/promptforge/internal/util"
	"github.com/rs/zerolog"
)

// Result sources.
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Request is one generation request.
type Request struct {
	Input string
	Tool  string
	Style string
	// UserID attributes the generated prompt to an account when set.
	UserID *int64
}

// Result is a generated prompt and where it came from.
type Result struct {
	Text   string
	Source string
	// PromptID is the stored prompt's id when the remote persisted it.
	PromptID int64
}

// Remote generates prompts on the HTTP service.
type Remote interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Generator tries Remote first and falls back to the local Catalog. A nil
// Remote renders locally only.
type Generator struct {
	Remote  Remote
	Catalog *Catalog
	Logger  zerolog.Logger
}

// NewGenerator returns a generator; a nil catalog means the built-in table.
func NewGenerator(remote Remote, catalog *Catalog, logger zerolog.Logger) *Generator {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Generator{Remote: remote, Catalog: catalog, Logger: logger}
}

// Generate produces a prompt for req. Remote failures are logged at warn
// level and answered from the local catalog; only blank input and
// cancellation are returned as errors.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	req.Input = util.NormalizeInput(req.Input)
	if req.Input == "" {
		return Result{}, ErrEmptyInput
	}

	if g.Remote != nil {
		res, err := g.Remote.Generate(ctx, req)
		if err == nil && res.Text != "" {
			res.Source = SourceRemote
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if err == nil {
			err = errors.New("remote returned an empty prompt")
		}
		g.Logger.Warn().
			Err(err).
			Str("tool", req.Tool).
			Str("style", req.Style).
			Msg("GENERATE_FALLBACK")
	}

	catalog := g.Catalog
	if catalog == nil {
		catalog = NewCatalog()
	}
	text, err := catalog.Render(req.Input, req.Tool, req.Style)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Source: SourceLocal}, nil
}
