// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/vakil/internal/logging"
	"github.com/jeranaias/vakil/internal/model"
	"github.com/jeranaias/vakil/internal/storage"
)

// Persisted record names. These match the browser client's local storage
// keys.
const (
	KeyChats        = "chats"
	KeyActiveChatID = "activeChatId"
)

// ErrSessionNotFound is returned when an operation names an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies what changed in the registry.
type EventKind int

const (
	// EventChanged fires after any mutation of sessions or the active pointer.
	EventChanged EventKind = iota
	// EventShowIntro asks the presentation layer to show the intro view.
	EventShowIntro
	// EventHideIntro asks the presentation layer to hide the intro view.
	EventHideIntro
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventShowIntro:
		return "show_intro"
	case EventHideIntro:
		return "hide_intro"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after a mutation completes.
type Event struct {
	Kind      EventKind
	SessionID string
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the in-memory collection of chat sessions, most recent first,
// plus the active session pointer. Every mutation flushes to the Store while
// holding the registry lock, so store writes never interleave.
type Registry struct {
	mu       sync.Mutex
	store    storage.Store
	logger   *zap.Logger
	sessions []*model.Session
	activeID string

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewRegistry creates an empty registry backed by store. Call Load to read
// persisted state.
func NewRegistry(store storage.Store, logger *zap.Logger) *Registry {
	return &Registry{
		store:    store,
		logger:   logging.OrNop(logger).Named("registry"),
		sessions: make([]*model.Session, 0),
		subs:     make(map[int]func(Event)),
	}
}

// Load replaces in-memory state with what the store holds. Missing or
// malformed records yield an empty registry; the returned error is
// informational only and the registry is always usable afterwards.
func (r *Registry) Load() error {
	r.mu.Lock()
	err := r.loadLocked()
	r.mu.Unlock()
	return err
}

// Reload re-reads the store, e.g. after another process changed it, and
// notifies subscribers.
func (r *Registry) Reload() error {
	r.mu.Lock()
	err := r.loadLocked()
	active := r.activeID
	r.mu.Unlock()

	r.emit(Event{Kind: EventChanged, SessionID: active})
	return err
}

func (r *Registry) loadLocked() error {
	sessions, chatsErr := r.readChats()
	r.sessions = sessions

	activeID, activeErr := r.readActiveID()
	r.activeID = activeID
	r.repairActiveLocked()

	return errors.Join(chatsErr, activeErr)
}

// readChats decodes the chats record, dropping entries without a usable
// identity.
func (r *Registry) readChats() ([]*model.Session, error) {
	data, err := r.store.Get(KeyChats)
	if errors.Is(err, storage.ErrNotFound) {
		return make([]*model.Session, 0), nil
	}
	if err != nil {
		r.logger.Warn("failed to read chats, starting empty", zap.Error(err))
		return make([]*model.Session, 0), err
	}

	var decoded []*model.Session
	if err := json.Unmarshal(data, &decoded); err != nil {
		r.logger.Warn("malformed chats record, starting empty", zap.Error(err))
		return make([]*model.Session, 0), err
	}

	seen := make(map[string]bool, len(decoded))
	sessions := make([]*model.Session, 0, len(decoded))
	for _, s := range decoded {
		if s == nil || s.ID == "" || seen[s.ID] {
			r.logger.Debug("skipping unusable session record")
			continue
		}
		seen[s.ID] = true
		s.Messages = validMessages(s.Messages)
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// validMessages drops messages whose role is neither user nor assistant.
func validMessages(msgs []model.Message) []model.Message {
	out := msgs[:0]
	for _, m := range msgs {
		if !m.Role.Valid() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// readActiveID accepts both a JSON string and the bare identifier the
// browser client writes.
func (r *Registry) readActiveID() (string, error) {
	data, err := r.store.Get(KeyActiveChatID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		r.logger.Warn("failed to read active chat id", zap.Error(err))
		return "", err
	}

	var id *string
	if err := json.Unmarshal(data, &id); err == nil {
		if id == nil {
			return "", nil
		}
		return *id, nil
	}
	return string(bytes.TrimSpace(data)), nil
}

// repairActiveLocked falls back to the first session (or none) when the
// active pointer is dangling.
func (r *Registry) repairActiveLocked() {
	if r.activeID == "" || r.indexLocked(r.activeID) >= 0 {
		return
	}
	r.logger.Debug("repairing dangling active chat id", zap.String("session_id", r.activeID))
	r.activeID = ""
	if len(r.sessions) > 0 {
		r.activeID = r.sessions[0].ID
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create inserts a new empty session at the head of the list and makes it
// active.
func (r *Registry) Create() *model.Session {
	s := model.NewSession()

	r.mu.Lock()
	r.sessions = append([]*model.Session{s}, r.sessions...)
	r.activeID = s.ID
	r.flushChatsLocked()
	r.flushActiveLocked()
	clone := s.Clone()
	r.mu.Unlock()

	r.logger.Info("session created", zap.String("session_id", s.ID))
	r.emit(Event{Kind: EventChanged, SessionID: s.ID})
	r.emit(Event{Kind: EventShowIntro, SessionID: s.ID})
	return clone
}

// Select makes id the active session. Unknown ids are ignored and Select
// returns false.
func (r *Registry) Select(id string) bool {
	r.mu.Lock()
	if r.indexLocked(id) < 0 {
		r.mu.Unlock()
		r.logger.Debug("select ignored: unknown session", zap.String("session_id", id))
		return false
	}
	r.activeID = id
	r.flushActiveLocked()
	r.mu.Unlock()

	r.emit(Event{Kind: EventChanged, SessionID: id})
	r.emit(Event{Kind: EventHideIntro, SessionID: id})
	return true
}

// Remove deletes a session. When it was active, the first remaining session
// becomes active, or none if the registry is now empty.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	idx := r.indexLocked(id)
	if idx < 0 {
		r.mu.Unlock()
		r.logger.Debug("remove ignored: unknown session", zap.String("session_id", id))
		return false
	}

	r.sessions = append(r.sessions[:idx:idx], r.sessions[idx+1:]...)
	wasActive := r.activeID == id
	if wasActive {
		r.activeID = ""
		if len(r.sessions) > 0 {
			r.activeID = r.sessions[0].ID
		}
	}
	r.flushChatsLocked()
	if wasActive {
		r.flushActiveLocked()
	}
	empty := len(r.sessions) == 0
	active := r.activeID
	r.mu.Unlock()

	r.logger.Info("session removed", zap.String("session_id", id), zap.String("active_id", active))
	r.emit(Event{Kind: EventChanged, SessionID: active})
	if empty {
		r.emit(Event{Kind: EventShowIntro})
	}
	return true
}

// AppendMessage appends msg to the named session. Unknown ids, including
// sessions deleted while a request was in flight, are dropped with
// ErrSessionNotFound and never recreated.
func (r *Registry) AppendMessage(sessionID string, msg model.Message) error {
	r.mu.Lock()
	idx := r.indexLocked(sessionID)
	if idx < 0 {
		r.mu.Unlock()
		r.logger.Debug("append dropped: unknown session",
			zap.String("session_id", sessionID),
			zap.String("role", msg.Role.String()))
		return ErrSessionNotFound
	}
	r.sessions[idx].Append(msg)
	r.flushChatsLocked()
	r.mu.Unlock()

	r.emit(Event{Kind: EventChanged, SessionID: sessionID})
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Sessions returns copies of all sessions, most recent first.
func (r *Registry) Sessions() []*model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Session, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = s.Clone()
	}
	return out
}

// Get returns a copy of the named session.
func (r *Registry) Get(id string) (*model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return nil, false
	}
	return r.sessions[idx].Clone(), true
}

// Exists reports whether id names a session.
func (r *Registry) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexLocked(id) >= 0
}

// ActiveID returns the active session id, or "" when none is active.
func (r *Registry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// Active returns a copy of the active session.
func (r *Registry) Active() (*model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID == "" {
		return nil, false
	}
	idx := r.indexLocked(r.activeID)
	if idx < 0 {
		return nil, false
	}
	return r.sessions[idx].Clone(), true
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn for registry events and returns a function that
// removes it. fn runs on the mutating goroutine after the registry lock is
// released, so it may call back into the registry.
func (r *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}

func (r *Registry) emit(ev Event) {
	r.subMu.Lock()
	fns := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (r *Registry) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range r.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) flushChatsLocked() error {
	data, err := json.Marshal(r.sessions)
	if err != nil {
		r.logger.Error("failed to encode chats", zap.Error(err))
		return err
	}
	if err := r.store.Set(KeyChats, data); err != nil {
		r.logger.Warn("failed to persist chats", zap.Error(err))
		return err
	}
	return nil
}

func (r *Registry) flushActiveLocked() error {
	var err error
	if r.activeID == "" {
		err = r.store.Delete(KeyActiveChatID)
	} else {
		var data []byte
		data, err = json.Marshal(r.activeID)
		if err == nil {
			err = r.store.Set(KeyActiveChatID, data)
		}
	}
	if err != nil {
		r.logger.Warn("failed to persist active chat id", zap.Error(err))
	}
	return err
}
