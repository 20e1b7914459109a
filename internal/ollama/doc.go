// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama talks to a local Ollama server.
//
// Two layers live here. Client is the raw HTTP client: it reports typed
// errors for an unreachable server, timeouts, unknown models and bad
// payloads. Service wraps a Client for the chat store and never fails:
// when the server cannot answer it substitutes placeholder models or a
// templated fallback reply and logs a warning.
//
// # Usage
//
//	client := ollama.NewClient(&ollama.ClientConfig{BaseURL: url})
//	svc := ollama.NewService(client, logger)
//	models, _ := svc.ListModels(ctx)
//	reply, _ := svc.Generate(ctx, "hello", models[0].Name)
package ollama
