// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jeranaias/promptforge/internal/client"
	"github.com/jeranaias/promptforge/internal/export"
	"github.com/jeranaias/promptforge/internal/prompt"
	"github.com/jeranaias/promptforge/internal/util"
)

type historyOptions struct {
	id     int64
	delete int64
	limit  int
	offset int

	exportFormat string
	outputDir    string
	open         bool
	theme        string
}

func newHistoryCmd(e *env) *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or show your saved prompts",
		Example: `  promptforge history
  promptforge history --id 12
  promptforge history --delete 12
  promptforge history --export html --output ~/prompts --open`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), e, opts)
		},
	}
	cmd.Flags().Int64Var(&opts.id, "id", 0, "show one prompt in full")
	cmd.Flags().Int64Var(&opts.delete, "delete", 0, "delete a saved prompt")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "number of prompts to list")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "number of prompts to skip")
	cmd.Flags().StringVar(&opts.exportFormat, "export", "", "write the listed prompts to a file: md, json, or html")
	cmd.Flags().StringVar(&opts.outputDir, "output", ".", "directory for --export")
	cmd.Flags().BoolVar(&opts.open, "open", false, "open the exported file")
	cmd.Flags().StringVar(&opts.theme, "theme", "dark", "HTML export theme: dark or light")
	cmd.MarkFlagsMutuallyExclusive("id", "delete", "export")
	return cmd
}

func runHistory(ctx context.Context, e *env, opts *historyOptions) error {
	c, err := e.requireClient()
	if err != nil {
		return err
	}
	if c.Token() == "" {
		return ErrNotLoggedIn
	}

	switch {
	case opts.delete > 0:
		if err := c.DeletePrompt(ctx, opts.delete); err != nil {
			return err
		}
		if e.jsonOut {
			return writeJSON(e.out, map[string]any{"deleted": opts.delete})
		}
		fmt.Fprintln(e.out, SuccessStyle.Render(fmt.Sprintf("Deleted prompt #%d", opts.delete)))
		return nil

	case opts.id > 0:
		p, err := c.GetPrompt(ctx, opts.id)
		if err != nil {
			return err
		}
		if e.jsonOut {
			return writeJSON(e.out, p)
		}
		fmt.Fprint(e.out, renderMarkdown(promptMarkdown(p), GetTerminalWidth()))
		return nil
	}

	prompts, err := c.ListPrompts(ctx, opts.limit, opts.offset)
	if err != nil {
		return err
	}
	if opts.exportFormat != "" {
		return exportHistory(e, prompts, opts)
	}
	if e.jsonOut {
		return writeJSON(e.out, prompts)
	}
	if len(prompts) == 0 {
		fmt.Fprintln(e.out, DimStyle.Render("No saved prompts yet. Save one from the UI with Ctrl+S."))
		return nil
	}

	width := GetTerminalWidth()
	fmt.Fprintln(e.out, TitleStyle.Render("Saved prompts"))
	for _, p := range prompts {
		fmt.Fprintln(e.out, historyLine(p, width))
	}
	fmt.Fprintln(e.out, DimStyle.Render("promptforge history --id <n> shows one in full"))
	return nil
}

func exportHistory(e *env, prompts []client.Prompt, opts *historyOptions) error {
	xopts := export.DefaultOptions()
	xopts.OutputDir = opts.outputDir
	xopts.Theme = opts.theme
	exporter, err := export.ForFormat(opts.exportFormat, xopts)
	if err != nil {
		return NewValidationErrorWithExample("export", opts.exportFormat, err.Error(), "promptforge history --export md")
	}
	path, err := export.ExportToFile(prompts, exporter, xopts)
	if err != nil {
		return err
	}
	e.logger.Info().Str("path", path).Int("count", len(prompts)).Msg("HISTORY_EXPORTED")
	if e.jsonOut {
		return writeJSON(e.out, map[string]any{"path": path, "count": len(prompts), "mime_type": exporter.MimeType()})
	}
	fmt.Fprintln(e.out, SuccessStyle.Render(fmt.Sprintf("Exported %d prompts to %s", len(prompts), path)))
	if opts.open {
		if err := export.OpenFile(path); err != nil {
			fmt.Fprintf(e.errOut, "%s could not open %s: %v\n", WarningStyle.Render("[WARN]"), path, err)
		}
	}
	return nil
}

// historyLine renders "#id  tool  style  date  preview" clipped to width.
func historyLine(p client.Prompt, width int) string {
	head := fmt.Sprintf("#%-4d %-11s %-9s %s  ",
		p.ID, toolLabel(p.TargetTool), p.PromptStyle, p.CreatedAt.Local().Format("2006-01-02"))
	rest := max(10, width-len(head))
	return ValueStyle.Render(head) + DimStyle.Render(util.Preview(p.GeneratedPrompt, rest))
}

func toolLabel(id string) string {
	if t, ok := prompt.LookupTool(id); ok {
		return t.Label
	}
	return id
}

// promptMarkdown lays out one saved prompt for glamour.
func promptMarkdown(p *client.Prompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Prompt #%d\n\n", p.ID)
	fmt.Fprintf(&b, "**Tool:** %s · **Style:** %s · **Saved:** %s\n\n",
		toolLabel(p.TargetTool), p.PromptStyle, p.CreatedAt.Local().Format("2006-01-02 15:04"))
	if !p.UpdatedAt.IsZero() && p.UpdatedAt.After(p.CreatedAt) {
		fmt.Fprintf(&b, "*Edited %s*\n\n", p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if goal := strings.TrimSpace(p.UserInput); goal != "" {
		fmt.Fprintf(&b, "### Goal\n\n%s\n\n", goal)
	}
	b.WriteString("### Generated prompt\n\n")
	for _, line := range strings.Split(strings.TrimRight(p.GeneratedPrompt, "\n"), "\n") {
		b.WriteString("> " + line + "\n")
	}
	return b.String()
}

// renderMarkdown renders with glamour, plain "notty" styling when colors are
// off. On renderer failure the markdown is returned as-is.
func renderMarkdown(md string, width int) string {
	style := glamour.WithAutoStyle()
	if !ColorsEnabled() {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(min(width, 100)))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
