// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/promptforge/internal/client"
	"github.com/jeranaias/promptforge/internal/prompt"
	"github.com/jeranaias/promptforge/internal/util"
)

// ErrNothingToExport is returned for an empty prompt list.
var ErrNothingToExport = errors.New("no prompts to export")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders saved prompts in one file format.
type Exporter interface {
	// Export converts the prompts to the target format.
	Export(prompts []client.Prompt) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeMetadata adds frontmatter and per-prompt tool, style and dates.
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark"). Default: "dark".
	Theme string

	// now is overridable in tests.
	now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Theme:           "dark",
	}
}

func (o *Options) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

// Formats lists the names ForFormat accepts.
func Formats() []string {
	return []string{"md", "json", "html"}
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use %s)", format, strings.Join(Formats(), ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile writes prompts with exporter into opts.OutputDir and returns
// the file path. The name is prompts_<timestamp><ext>.
func ExportToFile(prompts []client.Prompt, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(prompts) == 0 {
		return "", ErrNothingToExport
	}

	content, err := exporter.Export(prompts)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	filename := fmt.Sprintf("prompts_%s%s", opts.clock().Format("20060102_150405"), exporter.FileExtension())
	outputPath := filepath.Join(dir, filename)

	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// OpenFile opens a file in the default application for the OS.
func OpenFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		// Empty quoted title so start treats path as the target.
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return cmd.Start()
}

// toolLabel maps a tool id to its display label.
func toolLabel(id string) string {
	if t, ok := prompt.LookupTool(id); ok {
		return t.Label
	}
	return id
}

// title is the goal's first line, shortened.
func title(p client.Prompt) string {
	goal := strings.TrimSpace(p.UserInput)
	if goal == "" {
		return fmt.Sprintf("Prompt #%d", p.ID)
	}
	return util.Preview(goal, 60)
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func edited(p client.Prompt) bool {
	return !p.UpdatedAt.IsZero() && p.UpdatedAt.After(p.CreatedAt)
}
