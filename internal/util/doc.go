// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across vakil packages.
//
// String Utilities:
//   - TruncateRunes, TruncateRunesNoEllipsis: UTF-8 safe truncation
//   - OneLine: collapse line breaks for list previews
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
