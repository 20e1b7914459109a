// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the localchat command line.
//
// Without a subcommand localchat opens the chat UI. The subcommands cover
// the same operations for scripting:
//
//	localchat models                     list installed models
//	localchat ask "why is the sky blue"  send into the current session
//	localchat sessions list              list conversations
//	localchat export --format md         write a backup
//	localchat status --start             check or start the Ollama server
//
// Every command builds its own application context and closes it on exit.
package cli
