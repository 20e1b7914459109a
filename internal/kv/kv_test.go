// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SHARED BEHAVIOR
// =============================================================================

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fs, err := OpenFileStore(filepath.Join(dir, "store.json"))
	require.NoError(t, err)
	sq, err := OpenSQLiteStore(filepath.Join(dir, "store.db"))
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
		"sqlite": sq,
	}
}

func TestStore_Behavior(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			_, ok, err := s.Get(KeySessions)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(KeySessions, "[]"))
			require.NoError(t, s.Set(KeySelectedModel, "llama2"))
			require.NoError(t, s.Set(KeySelectedModel, "mistral"))

			v, ok, err := s.Get(KeySelectedModel)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "mistral", v)

			require.NoError(t, s.Remove(KeySelectedModel))
			require.NoError(t, s.Remove("never-set"))
			_, ok, err = s.Get(KeySelectedModel)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Clear())
			_, ok, err = s.Get(KeySessions)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Close())
			_, _, err = s.Get(KeySessions)
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.Set("k", "v"), ErrClosed)
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	s := NewMemoryStore()

	type rec struct {
		Name string `json:"name"`
	}
	var got rec
	ok, err := GetJSON(s, KeyUserProfile, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(s, KeyUserProfile, rec{Name: "Ada"}))
	ok, err = GetJSON(s, KeyUserProfile, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ada", got.Name)

	require.NoError(t, s.Set(KeyUserProfile, "{broken"))
	ok, err = GetJSON(s, KeyUserProfile, &got)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestMemoryStore_FailWrites(t *testing.T) {
	s := NewMemoryStore()
	s.FailWrites = errors.New("quota exceeded")

	assert.EqualError(t, s.Set("k", "v"), "quota exceeded")
	assert.Equal(t, 0, s.Len())
}

// =============================================================================
// FILE STORE
// =============================================================================

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyCurrentSession, "abc"))
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	s2, err := OpenFileStore(path)
	require.NoError(t, err)
	v, ok, err := s2.Get(KeyCurrentSession)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_ReloadDetectsOutsideWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	a, err := OpenFileStore(path)
	require.NoError(t, err)
	b, err := OpenFileStore(path)
	require.NoError(t, err)

	require.NoError(t, a.Set(KeySelectedModel, "mistral"))

	changed, err := a.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "own write is not a change")

	_, ok, _ := b.Get(KeySelectedModel)
	assert.False(t, ok)

	changed, err = b.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	v, ok, _ := b.Get(KeySelectedModel)
	assert.True(t, ok)
	assert.Equal(t, "mistral", v)
}

// =============================================================================
// SQLITE STORE
// =============================================================================

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyUserProfile, `{"name":"Ada"}`))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "double close is harmless")

	s2, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Get(KeyUserProfile)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"Ada"}`, v)
}

// =============================================================================
// OPEN / WATCH
// =============================================================================

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	for _, b := range []Backend{BackendMemory, BackendFile, BackendSQLite} {
		s, err := Open(b, dir)
		require.NoError(t, err, b)
		require.NoError(t, s.Close())
	}

	_, err := Open("etcd", dir)
	assert.Error(t, err)

	assert.Equal(t, filepath.Join(dir, FileStoreName), Path(BackendFile, dir))
	assert.Equal(t, "", Path(BackendMemory, dir))
}

func TestWatch_FiresOnRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := OpenFileStore(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, s.Set(KeySessions, "[]"))

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("watch callback did not fire")
	}

	cancel()
	assert.NoError(t, <-done)
}
