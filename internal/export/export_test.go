// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vakil/internal/model"
)

func sessionWith(msgs ...model.Message) *model.Session {
	s := model.NewSession()
	for _, m := range msgs {
		s.Append(m)
	}
	return s
}

func TestLastAssistant(t *testing.T) {
	s := sessionWith(
		model.NewUserMessage("draft a notice"),
		model.NewAssistantMessage("first draft"),
		model.NewUserMessage("shorter"),
		model.NewAssistantMessage("second draft"),
		model.NewUserMessage("thanks"),
	)

	msg, err := LastAssistant(s)
	require.NoError(t, err)
	assert.Equal(t, "second draft", msg.Content)
}

func TestLastAssistant_None(t *testing.T) {
	_, err := LastAssistant(sessionWith(model.NewUserMessage("hello")))
	assert.ErrorIs(t, err, ErrNothingToExport)

	_, err = LastAssistant(nil)
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestWriteMarkdown(t *testing.T) {
	dir := t.TempDir()
	s := sessionWith(model.NewAssistantMessage("# Legal Notice\n\nTo whom it may concern"))

	path, err := WriteMarkdown(dir, s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DocumentFilename), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Legal Notice\n\nTo whom it may concern", string(data))
}

func TestWriteMarkdown_NothingToExport(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteMarkdown(dir, sessionWith())
	assert.ErrorIs(t, err, ErrNothingToExport)

	_, statErr := os.Stat(filepath.Join(dir, DocumentFilename))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteTranscript(t *testing.T) {
	dir := t.TempDir()
	s := sessionWith(
		model.NewUserMessage("What is RTI?"),
		model.NewAssistantMessage("The Right to Information Act..."),
	)

	path, err := WriteTranscript(dir, s)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "chat_What_is_RTI-"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "# What is RTI?")
	assert.Contains(t, out, "The Right to Information Act...")
	assert.Less(t, strings.Index(out, "What is RTI?\n"), strings.Index(out, "The Right"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"a/b\\c", "a-b-c"},
		{"with space", "with_space"},
		{"", "chat"},
		{"किराया समझौता", "किराया_समझौता"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), "input %q", tt.in)
	}
}
