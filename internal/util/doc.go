// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across promptforge.
//
// String Utilities:
//   - NormalizeInput: NFC normalization and whitespace cleanup for user input
//   - TruncateWidth: display-width aware truncation with ellipsis
//   - PadRight: pad a string to a display width
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
