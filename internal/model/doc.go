// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// # Key Types
//
//   - Session: One conversation with a stable ID and an append-only message log
//   - Message: Single turn with a role and content
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
//	s := model.NewSession()
//	s.Append(model.NewUserMessage("What is a lease?"))
//	fmt.Println(s.DisplayTitle())
//
// Sessions marshal to the same JSON layout the browser client keeps in
// local storage, so both clients can read each other's records.
package model
