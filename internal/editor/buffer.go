// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"strings"
	"sync"
)

// Buffer is pending input with a tracked caret. Each edit computes the new
// text and caret first and then stores both together, so readers never see
// a caret that belongs to an older text.
type Buffer struct {
	mu    sync.Mutex
	text  string
	caret Caret
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Text returns the current contents.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Caret returns the current caret.
func (b *Buffer) Caret() Caret {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.caret
}

// Snapshot returns text and caret read together.
func (b *Buffer) Snapshot() (string, Caret) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text, b.caret
}

// SetCaret moves the caret, clamped to the current text.
func (b *Buffer) SetCaret(c Caret) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caret = c.clamp(len([]rune(b.text)))
}

// Insert splices fragment at the caret.
func (b *Buffer) Insert(fragment string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text, b.caret = Insert(b.text, b.caret, fragment)
}

// Backspace deletes before the caret or the selection.
func (b *Buffer) Backspace() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text, b.caret = Backspace(b.text, b.caret)
}

// Set replaces the contents and puts the caret at the end.
func (b *Buffer) Set(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	b.caret = At(len([]rune(text)))
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.Set("")
}

// TakeNonBlank returns the contents and clears the buffer. Blank contents
// are left in place and ok is false. The check and the clear happen under one lock, so
// a concurrent keystroke is either taken or kept, never lost.
func (b *Buffer) TakeNonBlank() (text string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if strings.TrimSpace(b.text) == "" {
		return "", false
	}
	text = b.text
	b.text = ""
	b.caret = At(0)
	return text, true
}

// IsBlank reports whether the buffer is empty or whitespace only.
func (b *Buffer) IsBlank() bool {
	return strings.TrimSpace(b.Text()) == ""
}
