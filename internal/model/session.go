// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/vakil/internal/util"
)

// DefaultTitle is the title given to every freshly created session.
const DefaultTitle = "New Chat"

// titlePreviewRunes is how much of the first message is shown when a session
// has no title of its own.
const titlePreviewRunes = 20

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds one chat conversation. ID never changes after creation and
// Messages only grow.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"-"`
}

// sessionJSON is the persisted layout. createdAt is Unix milliseconds.
type sessionJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"`
}

// NewSession creates an empty session with a fresh UUID.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Messages:  make([]Message, 0),
		CreatedAt: time.Now(),
	}
}

// MarshalJSON encodes the session in the persisted layout.
func (s Session) MarshalJSON() ([]byte, error) {
	msgs := s.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(sessionJSON{
		ID:        s.ID,
		Title:     s.Title,
		Messages:  msgs,
		CreatedAt: s.CreatedAt.UnixMilli(),
	})
}

// UnmarshalJSON decodes the persisted layout.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	s.Title = raw.Title
	s.Messages = raw.Messages
	if s.Messages == nil {
		s.Messages = make([]Message, 0)
	}
	if raw.CreatedAt > 0 {
		s.CreatedAt = time.UnixMilli(raw.CreatedAt)
	} else {
		s.CreatedAt = time.Time{}
	}
	return nil
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the end of the session.
func (s *Session) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// LastAssistant returns the most recent assistant message.
func (s *Session) LastAssistant() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// MessageCount returns the number of messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty returns true if there are no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// DisplayTitle returns the label shown in session lists. Untitled sessions
// fall back to a preview of their first message.
func (s *Session) DisplayTitle() string {
	if s.Title != "" && s.Title != DefaultTitle {
		return s.Title
	}
	if len(s.Messages) > 0 && s.Messages[0].Content != "" {
		return util.TruncateRunesNoEllipsis(util.OneLine(s.Messages[0].Content), titlePreviewRunes)
	}
	return DefaultTitle
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Messages = make([]Message, len(s.Messages))
	copy(clone.Messages, s.Messages)
	return &clone
}
