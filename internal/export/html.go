// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/promptforge/internal/client"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports prompts to a standalone HTML page with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts prompts to HTML.
func (e *HTMLExporter) Export(prompts []client.Prompt) ([]byte, error) {
	if len(prompts) == 0 {
		return nil, ErrNothingToExport
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString("    <title>Saved prompts</title>\n")
	sb.WriteString("    <meta name=\"generator\" content=\"promptforge\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", e.options.clock().Format(time.RFC3339))
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", theme)
	sb.WriteString("    <div class=\"container\">\n")

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString("            <h1>Saved prompts</h1>\n")
	fmt.Fprintf(&sb, "            <div class=\"metadata\">%d prompts</div>\n", len(prompts))
	sb.WriteString("        </header>\n")

	sb.WriteString("        <main>\n")
	for _, p := range prompts {
		sb.WriteString(e.renderPrompt(p))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>promptforge</strong> on %s</p>\n",
		e.options.clock().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

func (e *HTMLExporter) renderPrompt(p client.Prompt) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "            <article class=\"prompt tool-%s\" id=\"prompt-%d\">\n", html.EscapeString(p.TargetTool), p.ID)
	fmt.Fprintf(&sb, "                <h2>#%d %s</h2>\n", p.ID, html.EscapeString(title(p)))

	if e.options.IncludeMetadata {
		sb.WriteString("                <div class=\"metadata\">\n")
		fmt.Fprintf(&sb, "                    <span class=\"meta-item\"><strong>Tool:</strong> %s</span>\n", html.EscapeString(toolLabel(p.TargetTool)))
		fmt.Fprintf(&sb, "                    <span class=\"meta-item\"><strong>Style:</strong> %s</span>\n", html.EscapeString(p.PromptStyle))
		fmt.Fprintf(&sb, "                    <span class=\"meta-item\"><strong>Saved:</strong> %s</span>\n", formatTimestamp(p.CreatedAt))
		if edited(p) {
			fmt.Fprintf(&sb, "                    <span class=\"meta-item\"><strong>Edited:</strong> %s</span>\n", formatTimestamp(p.UpdatedAt))
		}
		sb.WriteString("                </div>\n")
	}

	if goal := strings.TrimSpace(p.UserInput); goal != "" {
		fmt.Fprintf(&sb, "                <p class=\"goal\">%s</p>\n", html.EscapeString(goal))
	}
	fmt.Fprintf(&sb, "                <pre class=\"generated\">%s</pre>\n", html.EscapeString(strings.TrimRight(p.GeneratedPrompt, "\n")))
	sb.WriteString("            </article>\n")

	return sb.String()
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const css = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-tertiary: #414868;
            --text-primary: #c0caf5;
            --text-muted: #565f89;
            --border-color: #414868;
            --code-bg: #1a1b26;
            --accent: #7aa2f7;
        }

        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f7f8fa;
            --bg-tertiary: #e1e4e8;
            --text-primary: #24292e;
            --text-muted: #6a737d;
            --border-color: #e1e4e8;
            --code-bg: #f6f8fa;
            --accent: #0366d6;
        }

        body {
            font-family: var(--font-sans);
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container {
            max-width: 900px;
            margin: 0 auto;
            background: var(--bg-secondary);
            border-radius: 12px;
            overflow: hidden;
        }

        .header { padding: 32px; background: var(--bg-tertiary); }
        .header h1 { font-size: 28px; margin-bottom: 8px; }

        .prompt { padding: 24px 32px; border-bottom: 1px solid var(--border-color); }
        .prompt h2 { font-size: 20px; color: var(--accent); margin-bottom: 8px; }

        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--text-muted); }
        .goal { margin: 12px 0; font-style: italic; }

        .generated {
            font-family: var(--font-mono);
            font-size: 14px;
            background: var(--code-bg);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 16px;
            white-space: pre-wrap;
            word-wrap: break-word;
        }

        .footer { padding: 16px 32px; font-size: 13px; color: var(--text-muted); text-align: center; }
    </style>
`
