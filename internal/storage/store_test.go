// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SHARED CONTRACT TESTS
// =============================================================================

// storeFactories builds each backend against a fresh temp dir.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"file": func() Store {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"sqlite": func() Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vakil.db"))
			require.NoError(t, err)
			return s
		},
		"memory": func() Store {
			return NewMemoryStore()
		},
	}
}

func TestStore_Contract(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			t.Cleanup(func() { s.Close() })

			_, err := s.Get("chats")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set("chats", []byte(`[]`)))
			got, err := s.Get("chats")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))

			require.NoError(t, s.Set("chats", []byte(`[{"id":"a"}]`)))
			got, err = s.Get("chats")
			require.NoError(t, err)
			assert.Equal(t, `[{"id":"a"}]`, string(got))

			require.NoError(t, s.Delete("chats"))
			_, err = s.Get("chats")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting twice is fine
			assert.NoError(t, s.Delete("chats"))
		})
	}
}

func TestStore_RejectsInvalidKeys(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			t.Cleanup(func() { s.Close() })

			for _, key := range []string{"", "../escape", "a/b", `a\b`} {
				assert.ErrorIs(t, s.Set(key, []byte("x")), ErrInvalidKey, "key %q", key)
			}
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vakil.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("activeChatId", []byte(`"abc"`)))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get("activeChatId")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(got))
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Backend: "", Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(Options{Backend: "sqlite", Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	assert.Equal(t, filepath.Join(dir, "vakil.db"), s.(*SQLiteStore).Path())
	require.NoError(t, s.Close())

	s, err = Open(Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(Options{Backend: "redis"})
	assert.Error(t, err)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set("activeChatId", []byte(`"id-1"`)))

	data, err := os.ReadFile(filepath.Join(dir, "activeChatId.json"))
	require.NoError(t, err)
	assert.Equal(t, `"id-1"`, string(data))
}

// =============================================================================
// WATCH TESTS
// =============================================================================

type keyRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *keyRecorder) add(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
}

func (r *keyRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func TestFileStore_WatchReportsExternalWrites(t *testing.T) {
	dir := t.TempDir()
	local, err := NewFileStore(dir)
	require.NoError(t, err)
	local.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec keyRecorder
	require.NoError(t, local.Watch(ctx, rec.add))

	// A second instance plays the part of another client process
	other, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, other.Set("chats", []byte(`[{"id":"remote"}]`)))

	assert.Eventually(t, func() bool {
		for _, k := range rec.snapshot() {
			if k == "chats" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileStore_WatchIgnoresOwnWrites(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	s.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec keyRecorder
	require.NoError(t, s.Watch(ctx, rec.add))

	require.NoError(t, s.Set("chats", []byte(`[]`)))
	require.NoError(t, s.Set("activeChatId", []byte(`"x"`)))

	assert.Never(t, func() bool {
		return len(rec.snapshot()) > 0
	}, 300*time.Millisecond, 20*time.Millisecond)
}
