// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/vakil/internal/assistant"
	"github.com/jeranaias/vakil/internal/dispatch"
	"github.com/jeranaias/vakil/internal/editor"
	"github.com/jeranaias/vakil/internal/export"
	"github.com/jeranaias/vakil/internal/keyboard"
	"github.com/jeranaias/vakil/internal/logging"
	"github.com/jeranaias/vakil/internal/model"
	"github.com/jeranaias/vakil/internal/recording"
	"github.com/jeranaias/vakil/internal/session"
)

var (
	// ErrNoActiveChat is returned by operations that need an active chat.
	ErrNoActiveChat = errors.New("no active chat")

	// ErrUnknownKey is returned by PressKey for tokens outside the layout.
	ErrUnknownKey = errors.New("unknown keyboard key")

	// ErrUnknownDocType is returned by SetDocType for unsupported hints.
	ErrUnknownDocType = errors.New("unknown document type")

	// ErrUnknownSuggestion is returned by UseSuggestion for a bad index.
	ErrUnknownSuggestion = errors.New("unknown suggestion")
)

// =============================================================================
// CLIENT
// =============================================================================

// Options configures a Client.
type Options struct {
	Registry *session.Registry
	Service  assistant.Service
	Dispatch dispatch.Config
	Layout   *keyboard.Layout
	Logger   *zap.Logger
}

// Client is the chat client core the presentation layer drives: sessions,
// pending input, the on-screen keyboard, voice capture and dispatch.
type Client struct {
	registry *session.Registry
	input    *editor.Buffer
	layout   keyboard.Layout
	recorder *recording.Controller
	pipeline *dispatch.Pipeline
	logger   *zap.Logger

	mu      sync.Mutex
	docGen  bool
	docType string

	sends sync.WaitGroup
}

// New creates a client. The registry should already be loaded.
func New(opts Options) *Client {
	logger := logging.OrNop(opts.Logger)
	layout := keyboard.Hindi()
	if opts.Layout != nil {
		layout = *opts.Layout
	}
	return &Client{
		registry: opts.Registry,
		input:    editor.NewBuffer(),
		layout:   layout,
		recorder: recording.NewController(opts.Service, logger),
		pipeline: dispatch.New(opts.Registry, opts.Service, opts.Dispatch, logger),
		logger:   logger.Named("app"),
	}
}

// Registry returns the session registry.
func (c *Client) Registry() *session.Registry { return c.registry }

// Pipeline returns the dispatch pipeline.
func (c *Client) Pipeline() *dispatch.Pipeline { return c.pipeline }

// Recorder returns the voice recorder.
func (c *Client) Recorder() *recording.Controller { return c.recorder }

// Layout returns the on-screen keyboard layout.
func (c *Client) Layout() keyboard.Layout { return c.layout }

// =============================================================================
// SESSIONS
// =============================================================================

// NewChat creates a chat, makes it active and clears pending input.
func (c *Client) NewChat() *model.Session {
	s := c.registry.Create()
	c.input.Clear()
	return s
}

// SelectChat makes id the active chat. Unknown ids are ignored.
func (c *Client) SelectChat(id string) bool {
	return c.registry.Select(id)
}

// DeleteChat removes a chat.
func (c *Client) DeleteChat(id string) bool {
	return c.registry.Remove(id)
}

// Active returns a copy of the active chat.
func (c *Client) Active() (*model.Session, bool) {
	return c.registry.Active()
}

// =============================================================================
// INPUT
// =============================================================================

// Input returns the pending input and its caret.
func (c *Client) Input() (string, editor.Caret) {
	return c.input.Snapshot()
}

// Type inserts a fragment at the caret.
func (c *Client) Type(fragment string) {
	c.input.Insert(fragment)
}

// Backspace deletes before the caret.
func (c *Client) Backspace() {
	c.input.Backspace()
}

// MoveCaret sets the caret or selection.
func (c *Client) MoveCaret(caret editor.Caret) {
	c.input.SetCaret(caret)
}

// PressKey applies an on-screen keyboard key.
func (c *Client) PressKey(token string) error {
	if !c.layout.Has(token) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, token)
	}
	keyboard.Press(c.input, token)
	return nil
}

// SetInput replaces the pending input.
func (c *Client) SetInput(text string) {
	c.input.Set(text)
}

// UseSuggestion replaces pending input with the prompt of suggestion i.
func (c *Client) UseSuggestion(i int) error {
	if i < 0 || i >= len(Suggestions) {
		return fmt.Errorf("%w: %d", ErrUnknownSuggestion, i)
	}
	c.input.Set(Suggestions[i].Prompt)
	return nil
}

// =============================================================================
// DOCUMENT MODE
// =============================================================================

// SetDocGen switches between asking questions and generating documents.
func (c *Client) SetDocGen(on bool) {
	c.mu.Lock()
	c.docGen = on
	c.mu.Unlock()
}

// DocGen reports whether document-generation mode is on.
func (c *Client) DocGen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docGen
}

// SetDocType sets the document-type hint. Matching is case-insensitive;
// "" or "auto" lets the server choose.
func (c *Client) SetDocType(name string) error {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "auto") {
		name = ""
	}
	for _, dt := range dispatch.DocTypes {
		if strings.EqualFold(dt, name) {
			c.mu.Lock()
			c.docType = dt
			c.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownDocType, name)
}

// DocType returns the document-type hint.
func (c *Client) DocType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docType
}

func (c *Client) settings() dispatch.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := dispatch.Settings{Mode: dispatch.ModeAsk}
	if c.docGen {
		s.Mode = dispatch.ModeGenerateDocument
		s.DocType = c.docType
	}
	return s
}

// =============================================================================
// DISPATCH
// =============================================================================

// Send dispatches pending input to the active chat and waits for the
// reply. It returns false when there was nothing to send.
func (c *Client) Send(ctx context.Context) (dispatch.Turn, bool) {
	return c.pipeline.Dispatch(ctx, c.input, c.settings())
}

// SendAsync starts a dispatch and returns once the user message is in the
// active chat and pending input is cleared. Only the request and the reply
// run in the background, so sends made back to back keep their order and
// typing or switching chats afterwards does not affect this turn. Use Wait
// to block until all sends finish.
func (c *Client) SendAsync(ctx context.Context, done func(dispatch.Turn)) bool {
	turn, ok := c.pipeline.Begin(c.registry.ActiveID(), c.input)
	if !ok {
		return false
	}
	s := c.settings()

	c.sends.Add(1)
	go func() {
		defer c.sends.Done()
		result := c.pipeline.Complete(ctx, turn, s)
		if done != nil {
			done(result)
		}
	}()
	return true
}

// Busy reports whether the active chat is waiting for a reply.
func (c *Client) Busy() bool {
	return c.pipeline.Busy(c.registry.ActiveID())
}

// Wait blocks until all sends and speech requests finish.
func (c *Client) Wait() {
	c.sends.Wait()
	c.pipeline.Wait()
}

// Upload sends the file at path as context for the active chat.
func (c *Client) Upload(ctx context.Context, path string) error {
	if c.registry.ActiveID() == "" {
		return ErrNoActiveChat
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	if !c.pipeline.Upload(ctx, filepath.Base(path), f) {
		return ErrNoActiveChat
	}
	return nil
}

// =============================================================================
// VOICE
// =============================================================================

// ToggleVoice starts a capture when idle and stops it when capturing. On
// stop, the transcript replaces pending input only if the chat that was
// active at start is still active; otherwise it is dropped. It returns the
// recorder state after the call.
func (c *Client) ToggleVoice(ctx context.Context) (recording.State, error) {
	switch c.recorder.State() {
	case recording.Idle:
		owner := c.registry.ActiveID()
		if owner == "" {
			return recording.Idle, ErrNoActiveChat
		}
		err := c.recorder.StartCapture(ctx, owner)
		return c.recorder.State(), err

	case recording.Capturing:
		res, err := c.recorder.StopCapture(ctx)
		if err != nil {
			return c.recorder.State(), err
		}
		c.deliverTranscript(res)
		return c.recorder.State(), nil

	default:
		return c.recorder.State(), recording.ErrBusy
	}
}

func (c *Client) deliverTranscript(res recording.Result) {
	if !res.OK {
		return
	}
	if res.Owner == "" || res.Owner != c.registry.ActiveID() {
		c.logger.Debug("transcript dropped: chat changed during capture",
			zap.String("owner", res.Owner))
		return
	}
	c.input.Set(res.Transcript)
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportLast saves the newest assistant answer of the active chat to
// dir/legal_document.md.
func (c *Client) ExportLast(dir string) (string, error) {
	s, ok := c.registry.Active()
	if !ok {
		return "", ErrNoActiveChat
	}
	return export.WriteMarkdown(dir, s)
}

// ExportTranscript saves the whole active chat under dir.
func (c *Client) ExportTranscript(dir string) (string, error) {
	s, ok := c.registry.Active()
	if !ok {
		return "", ErrNoActiveChat
	}
	return export.WriteTranscript(dir, s)
}
