// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/vakil/internal/assistant"
	"github.com/jeranaias/vakil/internal/editor"
	"github.com/jeranaias/vakil/internal/logging"
	"github.com/jeranaias/vakil/internal/model"
	"github.com/jeranaias/vakil/internal/session"
)

// Messages appended in place of a server reply.
const (
	ErrorContactingServer = "❌ Error contacting server."
	UploadedMessage       = "Document uploaded and indexed."
	UploadErrorMessage    = "❌ Error uploading document."
)

// DefaultSpeechTimeout bounds a fire-and-forget speech request.
const DefaultSpeechTimeout = 30 * time.Second

// =============================================================================
// MODE
// =============================================================================

// Mode selects which endpoint a dispatch uses.
type Mode int

const (
	// ModeAsk sends the input as a question.
	ModeAsk Mode = iota
	// ModeGenerateDocument drafts a document from the input.
	ModeGenerateDocument
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeGenerateDocument {
		return "generate-document"
	}
	return "ask"
}

// Settings are the per-dispatch request options.
type Settings struct {
	Mode    Mode
	DocType string
}

// DocTypes lists the document-type hints the server understands. The empty
// string lets the server choose.
var DocTypes = []string{
	"",
	"Legal notice",
	"Affidavit",
	"Consumer complaint",
	"RTI application",
	"Property document",
	"Lease/Rent agreement",
	"Mortgage deed",
	"Termination notice",
	"Cheque bounce complaint (S.138 NI Act)",
	"Writ petition",
	"Anticipatory bail application",
	"Other",
}

// DocTypeLabel returns the display name of a document-type hint.
func DocTypeLabel(docType string) string {
	if docType == "" {
		return "Auto"
	}
	return docType
}

// =============================================================================
// PIPELINE
// =============================================================================

// Config controls optional pipeline behavior.
type Config struct {
	// Synthesize enables the best-effort speech request after each reply.
	Synthesize bool
	// SpeechTimeout bounds that request. Zero means DefaultSpeechTimeout.
	SpeechTimeout time.Duration
}

// Turn is the outcome of one dispatch.
type Turn struct {
	SessionID string
	Query     string
	Reply     string
	Err       error
}

// Pipeline turns pending input into a request and appends the result to
// the session that was active when the dispatch started.
type Pipeline struct {
	registry *session.Registry
	service  assistant.Service
	cfg      Config
	logger   *zap.Logger

	mu           sync.Mutex
	busy         map[string]int
	uploadStatus UploadStatus
	uploadName   string
	onBusy       func(sessionID string, busy bool)

	// speech tracks fire-and-forget synthesis goroutines.
	speech sync.WaitGroup
}

// New creates a pipeline.
func New(registry *session.Registry, service assistant.Service, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.SpeechTimeout <= 0 {
		cfg.SpeechTimeout = DefaultSpeechTimeout
	}
	return &Pipeline{
		registry: registry,
		service:  service,
		cfg:      cfg,
		logger:   logging.OrNop(logger).Named("dispatch"),
		busy:     make(map[string]int),
	}
}

// OnBusyChange registers fn to observe busy transitions per session.
func (p *Pipeline) OnBusyChange(fn func(sessionID string, busy bool)) {
	p.mu.Lock()
	p.onBusy = fn
	p.mu.Unlock()
}

// Dispatch sends the pending input for the active session. It is a no-op
// returning false when no session is active or the input is blank.
// Otherwise the user message is appended, pending is cleared, and exactly
// one request is made. The reply, or ErrorContactingServer on failure, is
// appended to the session captured at the start, never to whatever is
// active when the reply arrives. Dispatch blocks until the reply is
// appended; callers that must not block use Begin and run Complete on
// another goroutine.
func (p *Pipeline) Dispatch(ctx context.Context, pending *editor.Buffer, s Settings) (Turn, bool) {
	return p.DispatchTo(ctx, p.registry.ActiveID(), pending, s)
}

// DispatchTo is Dispatch for an explicit session id.
func (p *Pipeline) DispatchTo(ctx context.Context, sessionID string, pending *editor.Buffer, s Settings) (Turn, bool) {
	turn, ok := p.Begin(sessionID, pending)
	if !ok {
		return Turn{}, false
	}
	return p.Complete(ctx, turn, s), true
}

// Begin runs the synchronous half of a dispatch: it takes the pending text,
// appends it as the user message and marks the session busy. Every Begin
// that returns true must be followed by exactly one Complete. Turns begun
// one after another on a session keep that order in the transcript no
// matter how their Completes interleave.
func (p *Pipeline) Begin(sessionID string, pending *editor.Buffer) (Turn, bool) {
	if sessionID == "" {
		return Turn{}, false
	}
	query, ok := pending.TakeNonBlank()
	if !ok {
		return Turn{}, false
	}
	if err := p.registry.AppendMessage(sessionID, model.NewUserMessage(query)); err != nil {
		p.logger.Debug("dispatch skipped", zap.String("session_id", sessionID), zap.Error(err))
		pending.Set(query)
		return Turn{}, false
	}

	p.setBusy(sessionID, true)
	return Turn{SessionID: sessionID, Query: query}, true
}

// Complete makes the request for a begun turn and appends the reply, or
// ErrorContactingServer on failure, to the turn's session. It clears the
// busy mark whatever the outcome.
func (p *Pipeline) Complete(ctx context.Context, turn Turn, s Settings) Turn {
	defer p.setBusy(turn.SessionID, false)

	turn.Reply, turn.Err = p.request(ctx, turn.Query, s)
	if turn.Err != nil {
		p.logger.Warn("assistant request failed",
			zap.String("session_id", turn.SessionID),
			zap.Stringer("mode", s.Mode),
			zap.Error(turn.Err))
		p.appendReply(turn.SessionID, ErrorContactingServer)
		return turn
	}

	p.appendReply(turn.SessionID, turn.Reply)
	p.speak(turn.Reply)
	return turn
}

// Busy reports whether a dispatch for sessionID is in flight.
func (p *Pipeline) Busy(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy[sessionID] > 0
}

// Wait blocks until outstanding speech requests finish.
func (p *Pipeline) Wait() {
	p.speech.Wait()
}

func (p *Pipeline) request(ctx context.Context, query string, s Settings) (string, error) {
	if s.Mode == ModeGenerateDocument {
		return p.service.GenerateDocument(ctx, query, s.DocType)
	}
	return p.service.Ask(ctx, query)
}

// appendReply appends an assistant message. A session deleted in the
// meantime is not recreated.
func (p *Pipeline) appendReply(sessionID, content string) {
	err := p.registry.AppendMessage(sessionID, model.NewAssistantMessage(content))
	if errors.Is(err, session.ErrSessionNotFound) {
		p.logger.Debug("reply dropped: session deleted", zap.String("session_id", sessionID))
	}
}

// speak requests synthesis without blocking the turn. Failures are logged
// and otherwise ignored.
func (p *Pipeline) speak(text string) {
	if !p.cfg.Synthesize || text == "" {
		return
	}
	p.speech.Add(1)
	go func() {
		defer p.speech.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.SpeechTimeout)
		defer cancel()
		if err := p.service.SynthesizeSpeech(ctx, text); err != nil {
			p.logger.Debug("speech synthesis failed", zap.Error(err))
		}
	}()
}

func (p *Pipeline) setBusy(sessionID string, busy bool) {
	p.mu.Lock()
	if busy {
		p.busy[sessionID]++
	} else {
		p.busy[sessionID]--
		if p.busy[sessionID] <= 0 {
			delete(p.busy, sessionID)
		}
	}
	fn := p.onBusy
	p.mu.Unlock()

	if fn != nil {
		fn(sessionID, busy)
	}
}
