// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable key-value persistence for vakil.
//
// The session registry keeps two records in a Store: "chats" (the ordered
// session list) and "activeChatId" (the active session pointer).
//
// # Key Types
//
//   - Store: key-value interface used by the registry
//   - FileStore: one JSON file per key, written atomically, with Watch
//   - SQLiteStore: single kv table in a pure-Go SQLite database
//   - MemoryStore: in-process map for tests
//
// # Usage
//
//	store, err := storage.Open(storage.Options{Backend: "file", Dir: dataDir})
//	err = store.Set("activeChatId", []byte(`"5f0c..."`))
//	data, err := store.Get("chats")
//	if errors.Is(err, storage.ErrNotFound) { ... }
//
// # Storage Location
//
// By default records live in ~/.vakil/data/.
package storage
