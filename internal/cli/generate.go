// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/jeranaias/promptforge/internal/prompt"
)

// generateTimeout bounds one non-interactive generation.
const generateTimeout = 60 * time.Second

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

type generateOptions struct {
	tool  string
	style string
	local bool
	copy  bool
}

func newGenerateCmd(e *env) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate [goal...]",
		Short: "Generate one prompt and print it",
		Example: `  promptforge generate --tool midjourney --style detailed a lighthouse in a storm
  echo "summarize this article" | promptforge generate --tool chatgpt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := strings.Join(args, " ")
			if goal == "" && !IsTTY() {
				b, err := io.ReadAll(io.LimitReader(e.in, 1<<20))
				if err != nil {
					return fmt.Errorf("failed to read goal from stdin: %w", err)
				}
				goal = string(b)
			}
			return runGenerate(cmd.Context(), e, opts, goal)
		},
	}
	cmd.Flags().StringVarP(&opts.tool, "tool", "t", "", "target tool: "+strings.Join(toolIDs(), ", ")+" (default ui.default_tool)")
	cmd.Flags().StringVarP(&opts.style, "style", "s", "", "prompt style: "+strings.Join(styleIDs(), ", ")+" (default ui.default_style)")
	cmd.Flags().BoolVar(&opts.local, "local", false, "render from local templates without calling the API")
	cmd.Flags().BoolVarP(&opts.copy, "copy", "c", false, "also copy the prompt to the clipboard")
	return cmd
}

func toolIDs() []string {
	ids := make([]string, 0, len(prompt.Tools()))
	for _, t := range prompt.Tools() {
		ids = append(ids, t.ID)
	}
	return ids
}

func styleIDs() []string {
	ids := make([]string, 0, len(prompt.Styles()))
	for _, s := range prompt.Styles() {
		ids = append(ids, s.ID)
	}
	return ids
}

// resolveSelections applies config defaults and rejects unknown ids.
func resolveSelections(e *env, tool, style string) (string, string, error) {
	if tool == "" {
		tool = e.cfg.UI.DefaultTool
	}
	if style == "" {
		style = e.cfg.UI.DefaultStyle
	}
	tool = strings.ToLower(strings.TrimSpace(tool))
	style = strings.ToLower(strings.TrimSpace(style))
	if !prompt.IsKnownTool(tool) {
		return "", "", NewValidationErrorWithExample("tool", tool, "unknown tool",
			"--tool "+strings.Join(toolIDs(), "|"))
	}
	if !prompt.IsKnownStyle(style) {
		return "", "", NewValidationErrorWithExample("style", style, "unknown style",
			"--style "+strings.Join(styleIDs(), "|"))
	}
	return tool, style, nil
}

type generateOutput struct {
	Prompt   string `json:"prompt"`
	Tool     string `json:"tool"`
	Style    string `json:"style"`
	Source   string `json:"source"`
	PromptID int64  `json:"prompt_id,omitempty"`
}

func runGenerate(ctx context.Context, e *env, opts *generateOptions, goal string) error {
	tool, style, err := resolveSelections(e, opts.tool, opts.style)
	if err != nil {
		return err
	}
	gen, err := e.newGenerator(opts.local)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()
	res, err := gen.Generate(ctx, prompt.Request{Input: goal, Tool: tool, Style: style})
	if err != nil {
		return err
	}

	if opts.copy {
		if err := copyToClipboard(res.Text); err != nil {
			fmt.Fprintf(e.errOut, "%s copy failed: %v\n", WarningStyle.Render("[WARN]"), err)
		} else if !e.jsonOut {
			fmt.Fprintln(e.errOut, SuccessStyle.Render("Copied to clipboard"))
		}
	}

	if e.jsonOut {
		return writeJSON(e.out, generateOutput{
			Prompt:   res.Text,
			Tool:     tool,
			Style:    style,
			Source:   res.Source,
			PromptID: res.PromptID,
		})
	}
	fmt.Fprintln(e.out, res.Text)
	if res.Source == prompt.SourceLocal && !opts.local && !e.cfg.Client.Offline {
		fmt.Fprintln(e.errOut, DimStyle.Render("(API unavailable, rendered from local templates)"))
	}
	return nil
}
