// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/promptforge/internal/client"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports prompts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

type frontmatter struct {
	Title     string   `yaml:"title"`
	Prompts   int      `yaml:"prompts"`
	Tools     []string `yaml:"tools,flow"`
	Exported  string   `yaml:"exported"`
	Generator string   `yaml:"generator"`
}

// Export converts prompts to Markdown.
func (e *MarkdownExporter) Export(prompts []client.Prompt) ([]byte, error) {
	if len(prompts) == 0 {
		return nil, ErrNothingToExport
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		fm, err := yaml.Marshal(frontmatter{
			Title:     "Saved prompts",
			Prompts:   len(prompts),
			Tools:     distinctTools(prompts),
			Exported:  e.options.clock().Format(time.RFC3339),
			Generator: "promptforge",
		})
		if err != nil {
			return nil, fmt.Errorf("frontmatter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(fm)
		sb.WriteString("---\n\n")
	}

	sb.WriteString("# Saved prompts\n\n")

	for i, p := range prompts {
		fmt.Fprintf(&sb, "## #%d %s\n\n", p.ID, escapeMarkdown(title(p)))

		if e.options.IncludeMetadata {
			fmt.Fprintf(&sb, "- **Tool**: %s\n", toolLabel(p.TargetTool))
			fmt.Fprintf(&sb, "- **Style**: %s\n", p.PromptStyle)
			fmt.Fprintf(&sb, "- **Saved**: %s\n", formatTimestamp(p.CreatedAt))
			if edited(p) {
				fmt.Fprintf(&sb, "- **Edited**: %s\n", formatTimestamp(p.UpdatedAt))
			}
			sb.WriteString("\n")
		}

		if goal := strings.TrimSpace(p.UserInput); goal != "" {
			sb.WriteString("### Goal\n\n")
			sb.WriteString(goal)
			sb.WriteString("\n\n")
		}

		sb.WriteString("### Prompt\n\n")
		sb.WriteString(fence(p.GeneratedPrompt))
		sb.WriteString("\n")

		if i < len(prompts)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	fmt.Fprintf(&sb, "\n*Exported from promptforge on %s*\n",
		e.options.clock().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// fence wraps s in a code fence longer than any backtick run inside it.
func fence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	f := strings.Repeat("`", max(3, longest+1))
	return f + "text\n" + strings.TrimRight(s, "\n") + "\n" + f + "\n"
}

// escapeMarkdown escapes characters that would start markup in a heading.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"*", `\*`,
		"_", `\_`,
		"`", "\\`",
		"[", `\[`,
		"]", `\]`,
		"#", `\#`,
	)
	return r.Replace(s)
}

func distinctTools(prompts []client.Prompt) []string {
	seen := make(map[string]bool)
	var tools []string
	for _, p := range prompts {
		if !seen[p.TargetTool] {
			seen[p.TargetTool] = true
			tools = append(tools, p.TargetTool)
		}
	}
	return tools
}
