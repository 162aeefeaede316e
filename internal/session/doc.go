// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the set of chat sessions and the active pointer.
//
// The registry keeps sessions most recent first and writes the whole state
// through a storage.Store after every mutation. Stored state that is
// missing or malformed loads as an empty registry rather than failing.
//
// # Key Types
//
//   - Registry: ordered sessions plus the active session id
//   - Event: change notification delivered to subscribers
//   - EventKind: changed, show intro, hide intro
//
// # Usage
//
//	reg := session.NewRegistry(store, logger)
//	_ = reg.Load()
//	s := reg.Create()
//	_ = reg.AppendMessage(s.ID, model.NewUserMessage("hello"))
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Subscribers are called
// after the registry lock is released.
package session
