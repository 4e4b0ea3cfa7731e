// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt turns a free-text goal into a prompt for a target AI tool.
//
// # Key Types
//
//   - Tool, Style: the selectable targets and presets, with display metadata
//   - Catalog: (tool, style) -> text/template table with YAML overrides
//   - Generator: remote generation with a local Catalog fallback
//
// # Usage
//
//	cat := prompt.NewCatalog()
//	text, err := cat.Render("a lighthouse in a storm", prompt.ToolDALLE, prompt.StyleDetailed)
package prompt
