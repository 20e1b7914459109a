// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
)

// Keys owned by the chat and profile stores. The namespaces are disjoint.
const (
	KeySessions       = "chatSessions"
	KeyCurrentSession = "currentSessionId"
	KeySelectedModel  = "selectedModel"
	KeyUserProfile    = "userProfile"
	KeyOnboardingSeen = "hasSeenWelcome"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kv: store is closed")

// Store is a synchronous string-keyed get/set store. There are no
// transactions; each call stands alone.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	// Clear deletes every key.
	Clear() error
	// Close releases resources. Further calls return ErrClosed.
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// File names used inside the data directory.
const (
	FileStoreName   = "store.json"
	SQLiteStoreName = "store.db"
)

// Open creates the store for backend inside dataDir.
func Open(backend Backend, dataDir string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile, "":
		return OpenFileStore(filepath.Join(dataDir, FileStoreName))
	case BackendSQLite:
		return OpenSQLiteStore(filepath.Join(dataDir, SQLiteStoreName))
	default:
		return nil, fmt.Errorf("kv: unknown backend %q", backend)
	}
}

// Path returns the file that backs backend inside dataDir, or "" for
// backends without one.
func Path(backend Backend, dataDir string) string {
	switch backend {
	case BackendFile, "":
		return filepath.Join(dataDir, FileStoreName)
	case BackendSQLite:
		return filepath.Join(dataDir, SQLiteStoreName)
	default:
		return ""
	}
}

// GetJSON decodes the JSON value under key into v. It reports false when
// the key is absent.
func GetJSON(s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(key, string(data))
}
