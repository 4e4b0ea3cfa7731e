// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// NormalizeInput converts s to Unicode NFC, turns CRLF into LF, and trims
// surrounding whitespace. Composed and decomposed forms of the same text
// therefore produce identical prompts.
func NormalizeInput(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// TruncateWidth truncates s to at most maxWidth terminal columns, accounting
// for wide (CJK, emoji) characters. An ellipsis is appended when there is
// room for one.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadRight pads s with spaces to width columns. Strings already at least that
// wide are returned unchanged.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// Preview flattens s onto one line and truncates it for list display.
func Preview(s string, maxWidth int) string {
	s = strings.Join(strings.Fields(s), " ")
	return TruncateWidth(s, maxWidth)
}
