// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv is the persistent key-value layer behind the localchat stores.
//
// Values are opaque strings (JSON documents or plain text); the stores own
// serialization. Three backends implement Store:
//
//   - MemoryStore: process-local map, for tests and ephemeral runs
//   - FileStore: one JSON object file written atomically
//   - SQLiteStore: a single table in a pure-Go SQLite database
//
// # Usage
//
//	store, err := kv.Open(kv.BackendFile, dataDir)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = kv.SetJSON(store, kv.KeyUserProfile, record)
//
// Watch notifies callers when another process rewrote the backing file.
package kv
