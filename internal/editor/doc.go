// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package editor implements caret-aware text splicing for pending input.
//
// Insert and Backspace are pure functions over a string and a Caret
// measured in runes. They know nothing about where a keystroke came from:
// a typed character, a pasted string and a virtual-keyboard conjunct such
// as "क्ष" all go through Insert as a single fragment.
//
// Buffer wraps the pure functions with a mutex for the input that belongs
// to the active chat.
package editor
