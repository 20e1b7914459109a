// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable pieces of the localchat TUI:
// the session sidebar, the model picker overlay, the status bar and the
// one-time welcome screen. Each component renders from plain data and a
// *styles.Theme; the chat view owns the state and feeds it in.
package components
