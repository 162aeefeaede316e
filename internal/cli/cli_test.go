// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vakil/internal/dispatch"
	"github.com/jeranaias/vakil/internal/editor"
	"github.com/jeranaias/vakil/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeServer answers the assistant endpoints with canned JSON.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ask", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "answer to " + req.Query})
	})
	mux.HandleFunc("/generate-document", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"content": "# NOTICE"})
	})
	mux.HandleFunc("/speech-languages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"languages": map[string]string{"hi": "Hindi", "en": "English"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"VAKIL_API_URL", "VAKIL_DATA_DIR", "VAKIL_STORAGE", "VAKIL_THEME", "VAKIL_LANGUAGE", "VAKIL_SPEECH"} {
		t.Setenv(k, "")
	}
}

// runRoot executes the root command with args against a memory store.
func runRoot(t *testing.T, apiURL, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{"--api-url", apiURL, "--data-dir", dataDir, "--plain"}
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newTestREPL(t *testing.T, apiURL string) (*chatREPL, *bytes.Buffer) {
	t.Helper()
	isolateHome(t)
	env, err := NewEnv(&Flags{APIURL: apiURL, DataDir: t.TempDir(), Storage: "memory", Plain: true})
	require.NoError(t, err)
	t.Cleanup(env.Close)

	var out bytes.Buffer
	return &chatREPL{env: env, c: env.Client, out: &out}, &out
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseSlash(t *testing.T) {
	tests := []struct {
		in, cmd, arg string
	}{
		{"/new", "/new", ""},
		{"  /Select 2 ", "/select", "2"},
		{"/upload /tmp/my file.pdf", "/upload", "/tmp/my file.pdf"},
		{"/kbd क SPACE ख", "/kbd", "क SPACE ख"},
		{"hello", "", "hello"},
	}
	for _, tt := range tests {
		cmd, arg := parseSlash(tt.in)
		assert.Equal(t, tt.cmd, cmd, tt.in)
		assert.Equal(t, tt.arg, arg, tt.in)
	}
}

func TestCompleteSlash(t *testing.T) {
	assert.Equal(t, []string{"/delete", "/docgen", "/doctype"}, completeSlash("/d"))
	assert.Nil(t, completeSlash("/select 1"))
	assert.Nil(t, completeSlash("hello"))
}

func TestParseCaret(t *testing.T) {
	c, err := parseCaret("3")
	require.NoError(t, err)
	assert.Equal(t, editor.Caret{Start: 3, End: 3}, c)

	c, err = parseCaret("1 4")
	require.NoError(t, err)
	assert.Equal(t, editor.Caret{Start: 1, End: 4}, c)

	_, err = parseCaret("")
	assert.Error(t, err)
	_, err = parseCaret("x")
	assert.Error(t, err)
}

func TestResolveChat(t *testing.T) {
	sessions := []*model.Session{
		{ID: "aaaa-1111", Title: "First"},
		{ID: "bbbb-2222", Title: "Second"},
	}

	s, err := resolveChat(sessions, "2")
	require.NoError(t, err)
	assert.Equal(t, "bbbb-2222", s.ID)

	s, err = resolveChat(sessions, "aaaa")
	require.NoError(t, err)
	assert.Equal(t, "aaaa-1111", s.ID)

	_, err = resolveChat(sessions, "3")
	assert.ErrorIs(t, err, errNoSuchChat)
	_, err = resolveChat(sessions, "zzz")
	assert.ErrorIs(t, err, errNoSuchChat)
}

func TestWriteSessionList(t *testing.T) {
	var buf bytes.Buffer
	writeSessionList(&buf, nil, "")
	assert.Contains(t, buf.String(), "No chats yet")

	buf.Reset()
	sessions := []*model.Session{
		{ID: "aaaa-1111", Title: "First"},
		{ID: "bbbb-2222", Title: "Second"},
	}
	writeSessionList(&buf, sessions, "bbbb-2222")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "First")
	assert.Contains(t, lines[1], "*")
	assert.Contains(t, lines[1], "Second")
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestAskCommand(t *testing.T) {
	isolateHome(t)
	srv := fakeServer(t)
	dir := t.TempDir()

	out, err := runRoot(t, srv.URL, dir, "--storage", "file", "ask", "is", "this", "valid?")
	require.NoError(t, err)
	assert.Contains(t, out, "answer to is this valid?")

	// The chat was saved and is listed on the next run.
	out, err = runRoot(t, srv.URL, dir, "--storage", "file", "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "is this valid?")
	assert.Contains(t, out, "2 messages")
}

func TestAskCommand_Document(t *testing.T) {
	isolateHome(t)
	srv := fakeServer(t)

	out, err := runRoot(t, srv.URL, t.TempDir(), "--storage", "memory", "ask", "-t", "affidavit", "lost documents")
	require.NoError(t, err)
	assert.Contains(t, out, "# NOTICE")
}

func TestAskCommand_UnknownDocType(t *testing.T) {
	isolateHome(t)
	srv := fakeServer(t)

	_, err := runRoot(t, srv.URL, t.TempDir(), "--storage", "memory", "ask", "-t", "sonnet", "hello")
	assert.Error(t, err)
}

func TestKeyboardCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"keyboard"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "क")
	assert.Contains(t, out.String(), "ज्ञ")
}

func TestLanguagesCommand(t *testing.T) {
	isolateHome(t)
	srv := fakeServer(t)

	out, err := runRoot(t, srv.URL, t.TempDir(), "--storage", "memory", "languages")
	require.NoError(t, err)
	assert.Contains(t, out, "Hindi")
	assert.Contains(t, out, "English")
}

func TestInvalidStorageFlag(t *testing.T) {
	isolateHome(t)
	_, err := runRoot(t, "http://localhost:8000", t.TempDir(), "--storage", "tape", "sessions", "list")
	assert.Error(t, err)
}

// =============================================================================
// CHAT COMMANDS
// =============================================================================

func TestChat_SendCreatesChat(t *testing.T) {
	srv := fakeServer(t)
	r, out := newTestREPL(t, srv.URL)

	r.send(context.Background(), "what is RTI?")

	assert.Contains(t, out.String(), "answer to what is RTI?")
	s, ok := r.c.Active()
	require.True(t, ok)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, model.RoleUser, s.Messages[0].Role)
}

func TestChat_EmptyLineWithNothingPending(t *testing.T) {
	srv := fakeServer(t)
	r, _ := newTestREPL(t, srv.URL)

	r.send(context.Background(), "")
	assert.Equal(t, 0, r.c.Registry().Len())
}

func TestChat_ServerDown(t *testing.T) {
	r, out := newTestREPL(t, "http://127.0.0.1:1")

	r.send(context.Background(), "hello")

	assert.Contains(t, out.String(), dispatch.ErrorContactingServer)
	s, ok := r.c.Active()
	require.True(t, ok)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, dispatch.ErrorContactingServer, s.Messages[1].Content)
}

func TestChat_SlashCommands(t *testing.T) {
	srv := fakeServer(t)
	r, out := newTestREPL(t, srv.URL)
	ctx := context.Background()

	quit, err := r.handleSlash(ctx, "/new")
	require.NoError(t, err)
	assert.False(t, quit)
	_, err = r.handleSlash(ctx, "/new")
	require.NoError(t, err)
	assert.Equal(t, 2, r.c.Registry().Len())

	_, err = r.handleSlash(ctx, "/delete 1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.c.Registry().Len())

	_, err = r.handleSlash(ctx, "/kbd क SPACE ख")
	require.NoError(t, err)
	text, _ := r.c.Input()
	assert.Equal(t, "क ख", text)

	_, err = r.handleSlash(ctx, "/kbd Q")
	assert.Error(t, err)

	_, err = r.handleSlash(ctx, "/caret 0 1")
	require.NoError(t, err)
	_, err = r.handleSlash(ctx, "/kbd ग")
	require.NoError(t, err)
	text, _ = r.c.Input()
	assert.Equal(t, "ग ख", text)

	_, err = r.handleSlash(ctx, "/docgen on")
	require.NoError(t, err)
	_, err = r.handleSlash(ctx, "/doctype legal notice")
	require.NoError(t, err)
	assert.Equal(t, "Legal notice", r.c.DocType())

	_, err = r.handleSlash(ctx, "/send")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "# NOTICE")

	_, err = r.handleSlash(ctx, "/suggest 1")
	require.NoError(t, err)
	text, _ = r.c.Input()
	assert.Contains(t, text, "consumer complaint")

	_, err = r.handleSlash(ctx, "/suggest 9")
	assert.Error(t, err)

	_, err = r.handleSlash(ctx, "/bogus")
	assert.Error(t, err)

	quit, err = r.handleSlash(ctx, "/quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestChat_UploadWithoutChat(t *testing.T) {
	srv := fakeServer(t)
	r, _ := newTestREPL(t, srv.URL)

	_, err := r.handleSlash(context.Background(), "/upload /nonexistent.pdf")
	assert.Error(t, err)
	assert.Equal(t, 0, r.c.Registry().Len())
}

func TestWriteInput(t *testing.T) {
	srv := fakeServer(t)
	r, _ := newTestREPL(t, srv.URL)
	var buf bytes.Buffer

	r.c.SetInput("hello")
	writeInput(&buf, r.c)
	assert.Contains(t, buf.String(), "hello|")

	buf.Reset()
	r.c.MoveCaret(editor.Caret{Start: 1, End: 3})
	writeInput(&buf, r.c)
	assert.Contains(t, buf.String(), "h[el]lo")
}

// =============================================================================
// TERMINAL
// =============================================================================

func TestWantColor(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}
	assert.True(t, wantColor(env(nil), true))
	assert.False(t, wantColor(env(nil), false))
	assert.False(t, wantColor(env(map[string]string{"NO_COLOR": "1", "FORCE_COLOR": "1"}), true))
	assert.True(t, wantColor(env(map[string]string{"FORCE_COLOR": "1"}), false))
}

func TestFitWidth(t *testing.T) {
	assert.Equal(t, DefaultTerminalWidth, fitWidth(0))
	assert.Equal(t, MinTerminalWidth, fitWidth(10))
	assert.Equal(t, 120, fitWidth(120))
}
