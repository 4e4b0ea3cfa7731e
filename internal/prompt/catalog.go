// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"
	"text/template"

	"github.com/jeranaias/promptforge/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput is returned when the goal is blank after normalization.
	ErrEmptyInput = errors.New("prompt: input is empty")
	// ErrUnknownTool is returned for a template override naming an unsupported tool.
	ErrUnknownTool = errors.New("prompt: unknown tool")
	// ErrUnknownStyle is returned for a template override naming an unsupported style.
	ErrUnknownStyle = errors.New("prompt: unknown style")
)

// FallbackTemplate renders goals whose (tool, style) pair has no template.
const FallbackTemplate = "Generate content about: {{.Input}}"

// builtinTemplates is the stock table. Every template has exactly one
// {{.Input}} placeholder.
var builtinTemplates = map[string]map[string]string{
	ToolChatGPT: {
		StyleCreative: "Act as a creative writing assistant. {{.Input}}. Please provide a detailed, imaginative response that explores multiple perspectives and includes vivid descriptions. Use storytelling techniques to make your response engaging and memorable.",
		StyleFactual:  "Provide a comprehensive, factual analysis of: {{.Input}}. Include relevant data, statistics, and credible sources. Structure your response with clear headings and bullet points for easy reading.",
		StyleDetailed: "Please provide an in-depth, step-by-step explanation of: {{.Input}}. Break down complex concepts into understandable parts, include examples, and explain the reasoning behind each step.",
	},
	ToolDALLE: {
		StyleCreative: "{{.Input}}, artistic style, vibrant colors, dynamic composition, high detail, professional photography lighting, 8K resolution, cinematic quality --ar 16:9",
		StyleFactual:  "{{.Input}}, photorealistic, accurate representation, natural lighting, documentary style, high resolution, precise details --ar 16:9",
		StyleDetailed: "{{.Input}}, highly detailed, intricate design, professional quality, studio lighting, ultra-high resolution, perfect composition, masterpiece --ar 16:9",
	},
	ToolMidjourney: {
		StyleCreative: "{{.Input}} --style expressive --chaos 50 --ar 16:9 --v 6.1 --stylize 750 --quality 2",
		StyleFactual:  "{{.Input}} --style raw --ar 16:9 --v 6.1 --stylize 250 --quality 2",
		StyleDetailed: "{{.Input}} --style raw --quality 2 --ar 16:9 --v 6.1 --stylize 500 --chaos 25 --seed 1234",
	},
}

// templateData is the value templates execute against.
type templateData struct {
	Input string
}

type templateKey struct {
	tool  string
	style string
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog maps (tool, style) pairs to prompt templates. It is safe for
// concurrent use; overrides swap the whole table under a write lock.
type Catalog struct {
	mu        sync.RWMutex
	templates map[templateKey]*template.Template
	fallback  *template.Template
	// source is the override file last applied, empty for the stock table
	source string
}

// NewCatalog returns a catalog holding the built-in templates.
func NewCatalog() *Catalog {
	c := &Catalog{}
	c.templates, c.fallback = builtinTable()
	return c
}

func builtinTable() (map[templateKey]*template.Template, *template.Template) {
	table := make(map[templateKey]*template.Template)
	for tool, byStyle := range builtinTemplates {
		for style, text := range byStyle {
			table[templateKey{tool, style}] = template.Must(parseTemplate(tool+"/"+style, text))
		}
	}
	return table, template.Must(parseTemplate("fallback", FallbackTemplate))
}

// parseTemplate parses text and proves it executes against templateData, so
// a bad override is rejected when loaded rather than when rendered.
func parseTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, err
	}
	if err := tmpl.Execute(&bytes.Buffer{}, templateData{Input: "probe"}); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Render fills the template for (tool, style) with the normalized input. An
// unknown pair renders the fallback template.
func (c *Catalog) Render(input, tool, style string) (string, error) {
	input = util.NormalizeInput(input)
	if input == "" {
		return "", ErrEmptyInput
	}

	c.mu.RLock()
	tmpl, ok := c.templates[templateKey{tool, style}]
	if !ok {
		tmpl = c.fallback
	}
	c.mu.RUnlock()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData{Input: input}); err != nil {
		return "", fmt.Errorf("render %s/%s: %w", tool, style, err)
	}
	return buf.String(), nil
}

// Has reports whether a template exists for (tool, style).
func (c *Catalog) Has(tool, style string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.templates[templateKey{tool, style}]
	return ok
}

// Source returns the override file last applied, or "" for the stock table.
func (c *Catalog) Source() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}

// Pairs lists every (tool, style) pair with a template as "tool/style",
// sorted.
func (c *Catalog) Pairs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.templates))
	for k := range c.templates {
		out = append(out, k.tool+"/"+k.style)
	}
	sort.Strings(out)
	return out
}

// Apply replaces the table with the built-ins overlaid by overrides. Either
// every override parses and the swap happens, or the catalog is unchanged.
func (c *Catalog) Apply(overrides Overrides, source string) error {
	table, fallback := builtinTable()

	for tool, byStyle := range overrides.Templates {
		if !IsKnownTool(tool) {
			return fmt.Errorf("%w: %q", ErrUnknownTool, tool)
		}
		for style, text := range byStyle {
			if !IsKnownStyle(style) {
				return fmt.Errorf("%w: %q", ErrUnknownStyle, style)
			}
			tmpl, err := parseTemplate(tool+"/"+style, text)
			if err != nil {
				return fmt.Errorf("template %s/%s: %w", tool, style, err)
			}
			table[templateKey{tool, style}] = tmpl
		}
	}
	if overrides.Fallback != "" {
		tmpl, err := parseTemplate("fallback", overrides.Fallback)
		if err != nil {
			return fmt.Errorf("fallback template: %w", err)
		}
		fallback = tmpl
	}

	c.mu.Lock()
	c.templates = table
	c.fallback = fallback
	c.source = source
	c.mu.Unlock()
	return nil
}

// Reset restores the built-in table.
func (c *Catalog) Reset() {
	table, fallback := builtinTable()
	c.mu.Lock()
	c.templates = table
	c.fallback = fallback
	c.source = ""
	c.mu.Unlock()
}
