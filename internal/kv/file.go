// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/jeranaias/localchat/internal/util"
)

// FileStore keeps the whole key space in one JSON object file. Reads are
// served from memory; every write rewrites the file atomically.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	data   map[string]string
	last   []byte // file contents as last read or written
	loaded bool
	closed bool
}

// OpenFileStore loads path, creating an empty store if it does not exist.
// A file that is not a JSON object of strings is an error.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: make(map[string]string)}
	if _, err := fs.reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

// Get implements Store.
func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return "", false, ErrClosed
	}
	v, ok := f.data[key]
	return v, ok, nil
}

// Set implements Store.
func (f *FileStore) Set(key, value string) error {
	return f.mutate(func(m map[string]string) { m[key] = value })
}

// Remove implements Store.
func (f *FileStore) Remove(key string) error {
	return f.mutate(func(m map[string]string) { delete(m, key) })
}

// Clear implements Store.
func (f *FileStore) Clear() error {
	return f.mutate(func(m map[string]string) {
		for k := range m {
			delete(m, k)
		}
	})
}

// Close implements Store.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Reload re-reads the file and reports whether its contents differ from
// what this store last read or wrote.
func (f *FileStore) Reload() (bool, error) {
	return f.reload()
}

func (f *FileStore) reload() (bool, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		raw = nil
	} else if err != nil {
		return false, fmt.Errorf("kv: read %s: %w", f.path, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false, ErrClosed
	}
	if f.loaded && bytes.Equal(raw, f.last) {
		return false, nil
	}

	data := make(map[string]string)
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return false, fmt.Errorf("kv: corrupt store %s: %w", f.path, err)
		}
	}
	f.data = data
	f.last = raw
	f.loaded = true
	return true, nil
}

// mutate applies fn to a copy of the map and commits it only once the file
// write succeeded.
func (f *FileStore) mutate(fn func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	next := make(map[string]string, len(f.data)+1)
	for k, v := range f.data {
		next[k] = v
	}
	fn(next)

	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("kv: encode store: %w", err)
	}
	if err := util.AtomicWriteFile(f.path, raw, 0600); err != nil {
		return fmt.Errorf("kv: write %s: %w", f.path, err)
	}

	f.data = next
	f.last = raw
	return nil
}
