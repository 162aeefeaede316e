// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/vakil/internal/util"
)

// DefaultWatchDebounce is how long Watch waits for writes to settle before
// reporting a key as changed.
const DefaultWatchDebounce = 150 * time.Millisecond

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps each key in its own JSON file under BaseDir.
type FileStore struct {
	// BaseDir is the directory holding one <key>.json file per key.
	// Default: ~/.vakil/data/
	BaseDir string

	// Debounce for Watch. Zero means DefaultWatchDebounce.
	Debounce time.Duration

	// known holds the bytes this process last read or wrote per key so that
	// Watch does not report our own writes back to us.
	mu    sync.Mutex
	known map[string][]byte
}

// NewFileStore creates a store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(home, ".vakil", "data")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{
		BaseDir: baseDir,
		known:   make(map[string][]byte),
	}, nil
}

// Get reads the value for key.
func (s *FileStore) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.remember(key, data)
	return data, nil
}

// Set writes the value for key atomically.
func (s *FileStore) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	// Remember first: the watcher may see the rename before we return
	s.remember(key, value)
	return util.AtomicWriteFile(s.filePath(key), value, 0o600)
}

// Delete removes the file for key.
func (s *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.forget(key)
	if err := os.Remove(s.filePath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close is a no-op; watchers are stopped through their context.
func (s *FileStore) Close() error {
	return nil
}

// =============================================================================
// CHANGE WATCHING
// =============================================================================

// Watch reports keys changed by another process. onChange runs on the
// watcher goroutine once writes to a key have settled. The watcher stops when
// ctx is cancelled.
func (s *FileStore) Watch(ctx context.Context, onChange func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.BaseDir); err != nil {
		watcher.Close()
		return err
	}

	debounce := s.Debounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	go s.processEvents(ctx, watcher, debounce, onChange)
	return nil
}

func (s *FileStore) processEvents(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, onChange func(string)) {
	defer watcher.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			key, ok := s.keyFor(event.Name)
			if !ok {
				continue
			}
			pending[key] = struct{}{}
			timer.Reset(debounce)

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}

		case <-timer.C:
			for key := range pending {
				if s.changedExternally(key) {
					onChange(key)
				}
			}
			pending = make(map[string]struct{})
		}
	}
}

// keyFor maps a file path in BaseDir back to its key.
func (s *FileStore) keyFor(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}

// changedExternally compares the file against what this process last saw.
func (s *FileStore) changedExternally(key string) bool {
	data, err := os.ReadFile(s.filePath(key))
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, seen := s.known[key]
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if !seen {
				return false
			}
			delete(s.known, key)
			return true
		}
		return false
	}
	if seen && bytes.Equal(prev, data) {
		return false
	}
	s.known[key] = data
	return true
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// filePath returns the file path for a key.
func (s *FileStore) filePath(key string) string {
	return filepath.Join(s.BaseDir, key+".json")
}

func (s *FileStore) remember(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.known == nil {
		s.known = make(map[string][]byte)
	}
	s.known[key] = append([]byte(nil), data...)
}

func (s *FileStore) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.known, key)
}
