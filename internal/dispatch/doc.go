// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch turns pending input into assistant requests.
//
// A dispatch captures the active session id when it starts and routes
// every append by that id. Switching chats while a request is in flight
// therefore cannot put the reply in the wrong transcript, and deleting the
// chat simply drops the reply. Each session tracks its own busy flag so a
// slow answer in one chat never holds up another.
//
// # Key Types
//
//   - Pipeline: Dispatch, Upload, Busy, UploadStatus
//   - Settings: ask vs. generate-document mode plus document-type hint
//   - UploadStatus: idle, uploading, success, error
package dispatch
