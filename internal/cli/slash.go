// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jeranaias/vakil/internal/app"
	"github.com/jeranaias/vakil/internal/dispatch"
	"github.com/jeranaias/vakil/internal/editor"
	"github.com/jeranaias/vakil/internal/recording"
)

// slashCommands are the chat commands, in help order.
var slashCommands = []struct {
	Name  string
	Args  string
	Usage string
}{
	{"/new", "", "Start a new chat"},
	{"/list", "", "List chats"},
	{"/select", "N", "Switch to chat N (number or id prefix)"},
	{"/delete", "N", "Delete chat N"},
	{"/voice", "", "Start or stop voice input"},
	{"/upload", "PATH", "Upload a document as context"},
	{"/docgen", "on|off", "Toggle document generation"},
	{"/doctype", "[NAME]", "Set or list document types"},
	{"/kbd", "KEY...", "Press keys on the Devanagari keyboard"},
	{"/keyboard", "", "Show the keyboard"},
	{"/suggest", "N", "Load suggested prompt N into the input"},
	{"/input", "", "Show pending input and caret"},
	{"/caret", "START [END]", "Move the caret or select a range"},
	{"/clear", "", "Clear pending input"},
	{"/send", "", "Send pending input"},
	{"/export", "[all]", "Save the last answer, or the whole chat"},
	{"/help", "", "Show this help"},
	{"/quit", "", "Exit"},
}

// parseSlash splits "/cmd rest of line" into a lower-cased command and its
// trimmed argument.
func parseSlash(input string) (cmd, arg string) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", input
	}
	cmd, arg, _ = strings.Cut(input, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

// completeSlash completes command names for liner.
func completeSlash(line string) []string {
	if !strings.HasPrefix(line, "/") || strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for _, c := range slashCommands {
		if strings.HasPrefix(c.Name, strings.ToLower(line)) {
			out = append(out, c.Name)
		}
	}
	return out
}

// handleSlash runs one chat command. It reports true when the chat should
// end.
func (r *chatREPL) handleSlash(ctx context.Context, line string) (bool, error) {
	cmd, arg := parseSlash(line)
	c := r.c

	switch cmd {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		writeHelp(r.out)

	case "/new":
		c.NewChat()
		fmt.Fprintln(r.out, SuccessStyle.Render("Started a new chat."))

	case "/list", "/chats":
		writeSessionList(r.out, c.Registry().Sessions(), c.Registry().ActiveID())

	case "/select":
		s, err := resolveChat(c.Registry().Sessions(), arg)
		if err != nil {
			return false, err
		}
		c.SelectChat(s.ID)
		writeTranscript(r.out, s, r.env.Renderer.Render)

	case "/delete":
		s, err := resolveChat(c.Registry().Sessions(), arg)
		if err != nil {
			return false, err
		}
		c.DeleteChat(s.ID)
		fmt.Fprintf(r.out, "Deleted %q.\n", s.DisplayTitle())

	case "/voice", "/mic":
		return false, r.toggleVoice(ctx)

	case "/upload":
		if arg == "" {
			return false, fmt.Errorf("usage: /upload PATH")
		}
		return false, r.upload(ctx, arg)

	case "/docgen":
		switch strings.ToLower(arg) {
		case "", "toggle":
			c.SetDocGen(!c.DocGen())
		case "on":
			c.SetDocGen(true)
		case "off":
			c.SetDocGen(false)
		default:
			return false, fmt.Errorf("usage: /docgen on|off")
		}
		if c.DocGen() {
			fmt.Fprintln(r.out, "Document generation on ("+dispatch.DocTypeLabel(c.DocType())+").")
		} else {
			fmt.Fprintln(r.out, "Document generation off.")
		}

	case "/doctype":
		if arg == "" {
			writeDocTypes(r.out, c.DocType())
			return false, nil
		}
		if err := c.SetDocType(arg); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Document type: "+dispatch.DocTypeLabel(c.DocType()))

	case "/kbd":
		for _, token := range strings.Fields(arg) {
			if err := c.PressKey(token); err != nil {
				return false, err
			}
		}
		writeInput(r.out, c)

	case "/keyboard":
		fmt.Fprintln(r.out, c.Layout().Render())

	case "/suggest":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("usage: /suggest N")
		}
		if err := c.UseSuggestion(n - 1); err != nil {
			return false, err
		}
		writeInput(r.out, c)

	case "/input":
		writeInput(r.out, c)

	case "/caret":
		caret, err := parseCaret(arg)
		if err != nil {
			return false, err
		}
		c.MoveCaret(caret)
		writeInput(r.out, c)

	case "/clear":
		c.SetInput("")

	case "/send":
		r.send(ctx, "")

	case "/export":
		return false, r.export(arg)

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}

func (r *chatREPL) toggleVoice(ctx context.Context) error {
	state, err := r.c.ToggleVoice(ctx)
	if err != nil {
		return err
	}
	if state == recording.Idle {
		if text, _ := r.c.Input(); text != "" {
			fmt.Fprintln(r.out, DimStyle.Render("Transcript loaded. Press Enter to send, or keep typing."))
		}
	}
	return nil
}

func (r *chatREPL) upload(ctx context.Context, path string) error {
	if err := r.c.Upload(ctx, path); err != nil {
		return err
	}
	status, name := r.c.Pipeline().UploadStatus()
	switch status {
	case dispatch.UploadSuccess:
		fmt.Fprintln(r.out, SuccessStyle.Render("✓ "+name+": "+dispatch.UploadedMessage))
	case dispatch.UploadError:
		fmt.Fprintln(r.out, ErrorStyle.Render(dispatch.UploadErrorMessage))
	}
	return nil
}

func (r *chatREPL) export(arg string) error {
	var (
		path string
		err  error
	)
	if strings.EqualFold(arg, "all") {
		path, err = r.c.ExportTranscript(".")
	} else {
		path, err = r.c.ExportLast(".")
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render("Saved "+path))
	return nil
}

// parseCaret reads "START" or "START END" rune offsets.
func parseCaret(arg string) (editor.Caret, error) {
	fields := strings.Fields(arg)
	if len(fields) == 0 || len(fields) > 2 {
		return editor.Caret{}, fmt.Errorf("usage: /caret START [END]")
	}
	start, err := strconv.Atoi(fields[0])
	if err != nil {
		return editor.Caret{}, fmt.Errorf("bad caret %q", fields[0])
	}
	end := start
	if len(fields) == 2 {
		if end, err = strconv.Atoi(fields[1]); err != nil {
			return editor.Caret{}, fmt.Errorf("bad caret %q", fields[1])
		}
	}
	return editor.Caret{Start: start, End: end}, nil
}

func writeHelp(w io.Writer) {
	fmt.Fprintln(w, TitleStyle.Render("Commands"))
	for _, c := range slashCommands {
		name := c.Name
		if c.Args != "" {
			name += " " + c.Args
		}
		fmt.Fprintf(w, "  %-22s %s\n", name, DimStyle.Render(c.Usage))
	}
}

func writeDocTypes(w io.Writer, current string) {
	for _, dt := range dispatch.DocTypes {
		marker := "  "
		if dt == current {
			marker = ActiveStyle.Render("* ")
		}
		fmt.Fprintln(w, marker+dispatch.DocTypeLabel(dt))
	}
}

// writeInput shows pending input with the caret as "|" or the selection in
// brackets.
func writeInput(w io.Writer, c *app.Client) {
	text, caret := c.Input()
	runes := []rune(text)
	var b strings.Builder
	b.WriteString(string(runes[:caret.Start]))
	if caret.Collapsed() {
		b.WriteString("|")
	} else {
		b.WriteString("[" + string(runes[caret.Start:caret.End]) + "]")
	}
	b.WriteString(string(runes[caret.End:]))
	fmt.Fprintln(w, DimStyle.Render("input: ")+b.String())
}
