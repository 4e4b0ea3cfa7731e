// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the promptforge TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - Primary accent, focus rings, active tabs
  - Cyan - Brand color, headings
  - Emerald - Success badges ("Copied", "Saved")
  - Amber - Warnings and the local-fallback marker
  - Rose - Errors

Each target tool has its own accent, looked up with ToolColor.

# Theme System (theme.go)

	theme := styles.NewTheme()
	trigger := theme.SelectTrigger.Render(label)

NewThemeWithProfile pins the color profile, which tests and --no-color use
to get stable, escape-free output.
*/
package styles
