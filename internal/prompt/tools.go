// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

// Tool identifiers.
const (
	ToolChatGPT    = "chatgpt"
	ToolDALLE      = "dalle"
	ToolMidjourney = "midjourney"
)

// Style identifiers.
const (
	StyleCreative = "creative"
	StyleFactual  = "factual"
	StyleDetailed = "detailed"
)

// Tool describes a target AI tool.
type Tool struct {
	ID    string
	Label string
	// Glyph is a single-cell marker shown beside the label
	Glyph string
	// Accent is the tool's hex color, used for badges and the generate button
	Accent string
}

// Style describes a prompt style preset.
type Style struct {
	ID          string
	Label       string
	Description string
}

var tools = []Tool{
	{ID: ToolChatGPT, Label: "ChatGPT", Glyph: "✦", Accent: "#10B981"},
	{ID: ToolDALLE, Label: "DALL-E", Glyph: "◐", Accent: "#F43F5E"},
	{ID: ToolMidjourney, Label: "Midjourney", Glyph: "✺", Accent: "#8B5CF6"},
}

var styles = []Style{
	{ID: StyleCreative, Label: "Creative", Description: "imaginative, expressive"},
	{ID: StyleFactual, Label: "Factual", Description: "accurate, sourced"},
	{ID: StyleDetailed, Label: "Detailed", Description: "thorough, step by step"},
}

// Tools returns the supported tools in display order.
func Tools() []Tool {
	return append([]Tool(nil), tools...)
}

// Styles returns the supported styles in display order.
func Styles() []Style {
	return append([]Style(nil), styles...)
}

// LookupTool returns the tool with the given id.
func LookupTool(id string) (Tool, bool) {
	for _, t := range tools {
		if t.ID == id {
			return t, true
		}
	}
	return Tool{}, false
}

// IsKnownTool reports whether id names a supported tool.
func IsKnownTool(id string) bool {
	_, ok := LookupTool(id)
	return ok
}

// IsKnownStyle reports whether id names a supported style.
func IsKnownStyle(id string) bool {
	for _, s := range styles {
		if s.ID == id {
			return true
		}
	}
	return false
}
