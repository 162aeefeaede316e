// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export saves assistant output to Markdown files.
//
// WriteMarkdown saves the newest assistant answer, typically a generated
// legal document, as legal_document.md. WriteTranscript saves the whole
// chat. Both write atomically.
package export
