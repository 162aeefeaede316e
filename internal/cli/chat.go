// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/vakil/internal/app"
	"github.com/jeranaias/vakil/internal/dispatch"
	"github.com/jeranaias/vakil/internal/recording"
	"github.com/jeranaias/vakil/internal/session"
	"github.com/jeranaias/vakil/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides line editing and history for the interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor whose history lives in dataDir.
func NewChatCLI(dataDir string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeSlash)

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dataDir, "chat_history"),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads one line. Non-empty lines go into history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with 0600 permissions and restores the terminal.
func (c *ChatCLI) Close() {
	if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		_, _ = c.line.WriteHistory(f)
		f.Close()
	}
	c.line.Close()
}

// =============================================================================
// CHAT LOOP
// =============================================================================

// chatREPL is the state of one interactive session.
type chatREPL struct {
	env *Env
	c   *app.Client
	out io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
	quiet  bool // suppress the intro while a chat is created for a send
}

// runChat runs the interactive chat until /quit, Ctrl+C at the prompt or
// EOF.
func runChat(ctx context.Context, env *Env, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r := &chatREPL{env: env, c: env.Client, out: out}

	unsubscribe := env.Registry.Subscribe(r.onRegistryEvent)
	defer unsubscribe()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	r.watchStore(watchCtx)

	env.Client.Recorder().OnStateChange(r.onRecorderState)

	// Ctrl+C during a request cancels the request, not the program.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer func() {
		signal.Stop(sigCh)
		close(sigCh)
	}()
	go func() {
		for range sigCh {
			r.cancelRequest()
		}
	}()

	r.printWelcome()

	input := NewChatCLI(env.DataDir)
	defer input.Close()

	for {
		line, err := input.ReadInput(r.prompt())
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C) and io.EOF (Ctrl+D) both end the chat.
			fmt.Fprintln(out)
			return nil
		}

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "/") {
			quit, err := r.handleSlash(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		r.send(ctx, line)
	}
}

// send types line at the caret and dispatches the pending input. An empty
// line sends whatever is already pending, e.g. a voice transcript.
func (r *chatREPL) send(ctx context.Context, line string) {
	if _, ok := r.c.Active(); !ok {
		if line == "" {
			return
		}
		r.mu.Lock()
		r.quiet = true
		r.mu.Unlock()
		r.c.NewChat()
		r.mu.Lock()
		r.quiet = false
		r.mu.Unlock()
	}
	if line != "" {
		r.c.Type(line)
	}
	if text, _ := r.c.Input(); strings.TrimSpace(text) == "" {
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}()

	mode := "Thinking..."
	if r.c.DocGen() {
		mode = "Drafting " + strings.ToLower(dispatch.DocTypeLabel(r.c.DocType())) + " document..."
	}
	fmt.Fprintln(r.out, DimStyle.Render(mode))

	turn, ok := r.c.Send(reqCtx)
	if !ok {
		return
	}
	if turn.Err != nil {
		r.env.Logger.Debug("turn failed", zap.Error(turn.Err))
		fmt.Fprintln(r.out, ErrorStyle.Render(dispatch.ErrorContactingServer))
		return
	}
	fmt.Fprintln(r.out, strings.TrimRight(r.env.Renderer.Render(turn.Reply), "\n"))
}

func (r *chatREPL) cancelRequest() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
		fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
	}
}

func (r *chatREPL) prompt() string {
	var tags []string
	if r.c.DocGen() {
		tags = append(tags, "doc:"+dispatch.DocTypeLabel(r.c.DocType()))
	}
	if r.c.Recorder().State() == recording.Capturing {
		tags = append(tags, "rec")
	}
	p := "vakil"
	if len(tags) > 0 {
		p += "[" + strings.Join(tags, ",") + "]"
	}
	return PromptStyle.Render(p+"> ") + pendingPreview(r.c)
}

// pendingPreview shows input built with /kbd or voice, which liner does not
// know about.
func pendingPreview(c *app.Client) string {
	text, _ := c.Input()
	if text == "" {
		return ""
	}
	return DimStyle.Render("["+text+"] ")
}

// =============================================================================
// EVENTS
// =============================================================================

func (r *chatREPL) onRegistryEvent(ev session.Event) {
	r.mu.Lock()
	quiet := r.quiet
	r.mu.Unlock()
	if ev.Kind == session.EventShowIntro && !quiet {
		r.printSuggestions()
	}
}

func (r *chatREPL) onRecorderState(s recording.State) {
	switch s {
	case recording.Capturing:
		fmt.Fprintln(r.out, WarningStyle.Render("● Recording... type /voice again to stop"))
	case recording.Transcribing:
		fmt.Fprintln(r.out, DimStyle.Render("Transcribing..."))
	case recording.Failed:
		fmt.Fprintln(r.out, ErrorStyle.Render("Voice capture failed"))
	}
}

// watchStore reloads chats written by another vakil process.
func (r *chatREPL) watchStore(ctx context.Context) {
	fs, ok := r.env.Store.(*storage.FileStore)
	if !ok {
		return
	}
	err := fs.Watch(ctx, func(key string) {
		if key != session.KeyChats && key != session.KeyActiveChatID {
			return
		}
		if err := r.env.Registry.Reload(); err != nil {
			r.env.Logger.Warn("reload after external change failed", zap.Error(err))
		}
	})
	if err != nil {
		r.env.Logger.Debug("store watch unavailable", zap.Error(err))
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *chatREPL) printWelcome() {
	fmt.Fprintln(r.out, TitleStyle.Render("vakil - legal assistant"))
	fmt.Fprintln(r.out, DimStyle.Render("Type a question and press Enter. /help lists commands."))

	if s, ok := r.c.Active(); ok && !s.IsEmpty() {
		fmt.Fprintln(r.out, RenderSeparator(40))
		writeTranscript(r.out, s, r.env.Renderer.Render)
	} else {
		r.printSuggestions()
	}
	if r.env.Config.UI.ShowKeyboard {
		fmt.Fprintln(r.out, r.c.Layout().Render())
	}
}

func (r *chatREPL) printSuggestions() {
	fmt.Fprintln(r.out, DimStyle.Render("Try one of these (/suggest N):"))
	for i, s := range app.Suggestions {
		fmt.Fprintf(r.out, "  %d. %s %s\n", i+1, AssistantStyle.Render(s.Title), s.Prompt)
	}
}
