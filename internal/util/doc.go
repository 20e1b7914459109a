// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the localchat packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with an ellipsis
//   - PrefixRunes: first n runes, no ellipsis
//   - SingleLine: folds newlines so text fits a list row
//   - TruncateWidth: display-width aware truncation for the TUI
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	title := util.PrefixRunes(content, 30) + "..."
//	err := util.AtomicWriteFile(path, data, 0600)
package util
