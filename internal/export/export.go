// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/vakil/internal/model"
	"github.com/jeranaias/vakil/internal/util"
)

// DocumentFilename is the file the latest assistant answer is saved as.
const DocumentFilename = "legal_document.md"

// ErrNothingToExport is returned when a session has no assistant message.
var ErrNothingToExport = errors.New("no assistant message to export")

// =============================================================================
// DOCUMENT EXPORT
// =============================================================================

// LastAssistant returns the newest assistant message of s.
func LastAssistant(s *model.Session) (model.Message, error) {
	if s == nil {
		return model.Message{}, ErrNothingToExport
	}
	msg, ok := s.LastAssistant()
	if !ok {
		return model.Message{}, ErrNothingToExport
	}
	return msg, nil
}

// WriteMarkdown saves the newest assistant message of s to
// dir/legal_document.md and returns the path.
func WriteMarkdown(dir string, s *model.Session) (string, error) {
	msg, err := LastAssistant(s)
	if err != nil {
		return "", err
	}
	return write(dir, DocumentFilename, []byte(msg.Content))
}

// =============================================================================
// TRANSCRIPT EXPORT
// =============================================================================

// Transcript renders the whole session as Markdown.
func Transcript(s *model.Session) ([]byte, error) {
	if s == nil || s.IsEmpty() {
		return nil, ErrNothingToExport
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(s.DisplayTitle()))
	if !s.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "*Started %s*\n\n", s.CreatedAt.Format("2006-01-02 15:04"))
	}

	for i, msg := range s.Messages {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&sb, "### %s\n\n", msg.Role.DisplayName())
		sb.WriteString(strings.TrimRight(msg.Content, "\n"))
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

// WriteTranscript saves the whole session under a file name derived from
// its title and returns the path.
func WriteTranscript(dir string, s *model.Session) (string, error) {
	data, err := Transcript(s)
	if err != nil {
		return "", err
	}
	return write(dir, "chat_"+sanitizeFilename(s.DisplayTitle())+".md", data)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func write(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", "\\#", "*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]")
	return r.Replace(s)
}

// sanitizeFilename replaces characters that are invalid in file names on
// any supported OS.
func sanitizeFilename(s string) string {
	s = util.TruncateRunesNoEllipsis(s, 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "chat"
	}
	return b.String()
}
