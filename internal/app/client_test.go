// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/vakil/internal/assistant"
	"github.com/jeranaias/vakil/internal/dispatch"
	"github.com/jeranaias/vakil/internal/editor"
	"github.com/jeranaias/vakil/internal/export"
	"github.com/jeranaias/vakil/internal/model"
	"github.com/jeranaias/vakil/internal/recording"
	"github.com/jeranaias/vakil/internal/session"
	"github.com/jeranaias/vakil/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubService struct {
	mu         sync.Mutex
	transcript string
	docTypes   []string
	uploaded   []string
}

func (s *stubService) Ask(ctx context.Context, query string) (string, error) {
	return "answer to " + query, nil
}

func (s *stubService) GenerateDocument(ctx context.Context, description, preferredType string) (string, error) {
	s.mu.Lock()
	s.docTypes = append(s.docTypes, preferredType)
	s.mu.Unlock()
	return "# Draft\n\n" + description, nil
}

func (s *stubService) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	data, _ := io.ReadAll(r)
	s.mu.Lock()
	s.uploaded = append(s.uploaded, name+":"+string(data))
	s.mu.Unlock()
	return "ok", nil
}

func (s *stubService) StartCapture(ctx context.Context) (bool, error) { return true, nil }

func (s *stubService) StopCapture(ctx context.Context) (assistant.Transcription, error) {
	if s.transcript == "" {
		return assistant.Transcription{}, nil
	}
	return assistant.Transcription{Text: s.transcript, OK: true}, nil
}

func (s *stubService) SynthesizeSpeech(ctx context.Context, text string) error { return nil }

func newTestClient(t *testing.T, svc *stubService) *Client {
	t.Helper()
	reg := session.NewRegistry(storage.NewMemoryStore(), nil)
	require.NoError(t, reg.Load())
	c := New(Options{Registry: reg, Service: svc})
	t.Cleanup(c.Wait)
	return c
}

func inputText(c *Client) string {
	text, _ := c.Input()
	return text
}

func TestNewChatClearsInput(t *testing.T) {
	c := newTestClient(t, &stubService{})
	c.NewChat()
	c.Type("half typed")

	s := c.NewChat()
	assert.Equal(t, "", inputText(c))

	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, s.ID, active.ID)
}

func TestTypingAndKeyboard(t *testing.T) {
	c := newTestClient(t, &stubService{})
	c.NewChat()

	c.Type("hello world")
	c.MoveCaret(editor.Caret{Start: 0, End: 5})
	c.Type("hi")
	text, caret := c.Input()
	assert.Equal(t, "hi world", text)
	assert.Equal(t, editor.At(2), caret)

	require.NoError(t, c.PressKey("क्ष"))
	require.NoError(t, c.PressKey("SPACE"))
	assert.Equal(t, "hiक्ष  world", inputText(c))

	assert.ErrorIs(t, c.PressKey("Q"), ErrUnknownKey)

	c.Backspace()
	assert.Equal(t, "hiक्ष world", inputText(c))
}

func TestSendAsksByDefault(t *testing.T) {
	c := newTestClient(t, &stubService{})
	s := c.NewChat()
	c.SetInput("What is a lease?")

	turn, ok := c.Send(context.Background())
	require.True(t, ok)
	assert.Equal(t, "answer to What is a lease?", turn.Reply)
	assert.Equal(t, "", inputText(c))

	got, _ := c.Registry().Get(s.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.RoleUser, got.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, got.Messages[1].Role)
}

func TestSendDocumentMode(t *testing.T) {
	svc := &stubService{}
	c := newTestClient(t, svc)
	c.NewChat()

	c.SetDocGen(true)
	require.NoError(t, c.SetDocType("affidavit"))
	assert.Equal(t, "Affidavit", c.DocType())

	c.SetInput("affidavit of residence")
	turn, ok := c.Send(context.Background())
	require.True(t, ok)
	assert.Equal(t, "# Draft\n\naffidavit of residence", turn.Reply)
	assert.Equal(t, []string{"Affidavit"}, svc.docTypes)

	require.NoError(t, c.SetDocType("auto"))
	assert.Equal(t, "", c.DocType())
	assert.ErrorIs(t, c.SetDocType("Ransom note"), ErrUnknownDocType)
}

func TestSendWithoutChatIsNoop(t *testing.T) {
	c := newTestClient(t, &stubService{})
	c.SetInput("orphan")

	_, ok := c.Send(context.Background())
	assert.False(t, ok)
	assert.False(t, c.SendAsync(context.Background(), nil))
	assert.Equal(t, "orphan", inputText(c))
}

func TestSendAsyncCapturesChatAndText(t *testing.T) {
	c := newTestClient(t, &stubService{})
	b := c.NewChat()
	a := c.NewChat()
	c.SetInput("for A")

	var mu sync.Mutex
	var turns []dispatch.Turn
	require.True(t, c.SendAsync(context.Background(), func(turn dispatch.Turn) {
		mu.Lock()
		turns = append(turns, turn)
		mu.Unlock()
	}))

	// Switching and typing right away must not touch the queued turn.
	c.SelectChat(b.ID)
	c.Type("draft for B")
	c.Wait()

	require.Len(t, turns, 1)
	assert.Equal(t, a.ID, turns[0].SessionID)
	assert.Equal(t, "for A", turns[0].Query)
	assert.Equal(t, "draft for B", inputText(c))

	gotA, _ := c.Registry().Get(a.ID)
	gotB, _ := c.Registry().Get(b.ID)
	assert.Len(t, gotA.Messages, 2)
	assert.Empty(t, gotB.Messages)
	assert.False(t, c.Busy())
}

func TestSendAsyncKeepsOrder(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := newTestClient(t, &stubService{})
		chat := c.NewChat()

		c.SetInput("first")
		require.True(t, c.SendAsync(context.Background(), nil))

		// The user message is stored before SendAsync returns.
		got, _ := c.Registry().Get(chat.ID)
		require.NotEmpty(t, got.Messages)
		assert.Equal(t, model.NewUserMessage("first"), got.Messages[0])
		assert.Empty(t, inputText(c))

		c.SetInput("second")
		require.True(t, c.SendAsync(context.Background(), nil))
		c.Wait()

		got, _ = c.Registry().Get(chat.ID)
		require.Len(t, got.Messages, 4)
		var users []string
		for _, m := range got.Messages {
			if m.Role == model.RoleUser {
				users = append(users, m.Content)
			}
		}
		assert.Equal(t, []string{"first", "second"}, users)
		assert.False(t, c.Busy())
	}
}

func TestToggleVoiceDeliversTranscript(t *testing.T) {
	c := newTestClient(t, &stubService{transcript: "मेरा किरायेदार किराया नहीं दे रहा"})
	c.NewChat()
	c.SetInput("old text")

	state, err := c.ToggleVoice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recording.Capturing, state)

	state, err = c.ToggleVoice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recording.Idle, state)
	assert.Equal(t, "मेरा किरायेदार किराया नहीं दे रहा", inputText(c))
}

func TestToggleVoiceDropsTranscriptAfterChatSwitch(t *testing.T) {
	c := newTestClient(t, &stubService{transcript: "spoken"})
	b := c.NewChat()
	c.NewChat()

	_, err := c.ToggleVoice(context.Background())
	require.NoError(t, err)
	c.SelectChat(b.ID)

	state, err := c.ToggleVoice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recording.Idle, state)
	assert.Equal(t, "", inputText(c))
}

func TestToggleVoiceDropsTranscriptAfterChatDeleted(t *testing.T) {
	c := newTestClient(t, &stubService{transcript: "spoken"})
	a := c.NewChat()

	_, err := c.ToggleVoice(context.Background())
	require.NoError(t, err)
	c.DeleteChat(a.ID)

	_, err = c.ToggleVoice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", inputText(c))
}

func TestToggleVoiceNeedsChat(t *testing.T) {
	c := newTestClient(t, &stubService{})
	_, err := c.ToggleVoice(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveChat)
	assert.Equal(t, recording.Idle, c.Recorder().State())
}

func TestUpload(t *testing.T) {
	svc := &stubService{}
	c := newTestClient(t, svc)
	s := c.NewChat()

	path := filepath.Join(t.TempDir(), "sale_deed.txt")
	require.NoError(t, os.WriteFile(path, []byte("deed"), 0600))

	require.NoError(t, c.Upload(context.Background(), path))
	assert.Equal(t, []string{"sale_deed.txt:deed"}, svc.uploaded)

	got, _ := c.Registry().Get(s.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, dispatch.UploadedMessage, got.Messages[0].Content)

	assert.Error(t, c.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.pdf")))
}

func TestUploadNeedsChat(t *testing.T) {
	c := newTestClient(t, &stubService{})
	assert.ErrorIs(t, c.Upload(context.Background(), "x.pdf"), ErrNoActiveChat)
}

func TestExportLast(t *testing.T) {
	c := newTestClient(t, &stubService{})
	dir := t.TempDir()

	_, err := c.ExportLast(dir)
	assert.ErrorIs(t, err, ErrNoActiveChat)

	c.NewChat()
	_, err = c.ExportLast(dir)
	assert.ErrorIs(t, err, export.ErrNothingToExport)

	c.SetInput("draft a notice")
	_, ok := c.Send(context.Background())
	require.True(t, ok)

	path, err := c.ExportLast(dir)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "answer to draft a notice", string(data))
}

func TestUseSuggestion(t *testing.T) {
	c := newTestClient(t, &stubService{})
	c.NewChat()

	require.NoError(t, c.UseSuggestion(0))
	assert.Equal(t, "What is the procedure for filing a consumer complaint?", inputText(c))

	require.NoError(t, c.UseSuggestion(1))
	assert.Equal(t, "Is my case strong enough to take to court?", inputText(c))

	assert.ErrorIs(t, c.UseSuggestion(5), ErrUnknownSuggestion)
}
