// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads the localchat configuration.
//
// Configuration is TOML with built-in defaults, environment variable
// overrides and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (LOCALCHAT_*)
//   - ~/.localchat/config.toml, or the file given with --config
//   - Built-in defaults
//
// # Example
//
//	default_model = "llama3.2"
//
//	[ollama]
//	url = "http://127.0.0.1:11434"
//	timeout_secs = 120
//
//	[storage]
//	backend = "sqlite"
//
//	[log]
//	level = "debug"
package config
