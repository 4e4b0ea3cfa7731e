// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved prompts to files.
//
// # Supported Formats
//
//   - Markdown: YAML frontmatter plus one section per prompt
//   - JSON: the prompts exactly as the API returns them
//   - HTML: a standalone page with embedded CSS, dark or light
//
// # Usage
//
//	exporter, err := export.ForFormat("md", export.DefaultOptions())
//	path, err := export.ExportToFile(prompts, exporter, opts)
package export
