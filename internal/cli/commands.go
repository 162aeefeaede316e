// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vakil/internal/dispatch"
	"github.com/jeranaias/vakil/internal/keyboard"
	"github.com/jeranaias/vakil/internal/model"
)

// errNoSuchChat is returned when a chat reference matches nothing.
var errNoSuchChat = errors.New("no such chat")

// =============================================================================
// ASK
// =============================================================================

func newAskCmd(env func() *Env) *cobra.Command {
	var docType string
	var document bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question in a new chat and print the answer",
		Example: `  vakil ask "What is the procedure for filing a consumer complaint?"
  vakil ask --document --type "Legal notice" "unpaid salary for three months"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := env()
			c := e.Client

			c.NewChat()
			c.SetInput(strings.Join(args, " "))
			if document || docType != "" {
				c.SetDocGen(true)
				if err := c.SetDocType(docType); err != nil {
					return err
				}
			}

			turn, ok := c.Send(cmd.Context())
			if !ok {
				return errors.New("nothing to send")
			}
			if turn.Err != nil {
				return turn.Err
			}
			fmt.Fprint(cmd.OutOrStdout(), e.Renderer.Render(turn.Reply))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&document, "document", "d", false, "generate a document instead of answering")
	cmd.Flags().StringVarP(&docType, "type", "t", "", "document type hint (implies --document)")
	return cmd
}

// =============================================================================
// SESSIONS
// =============================================================================

func newSessionsCmd(env func() *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"chats"},
		Short:   "List, show and delete saved chats",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved chats, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := env()
			writeSessionList(cmd.OutOrStdout(), e.Registry.Sessions(), e.Registry.ActiveID())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <n|id>",
		Short: "Print a chat transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := env()
			s, err := resolveChat(e.Registry.Sessions(), args[0])
			if err != nil {
				return err
			}
			writeTranscript(cmd.OutOrStdout(), s, e.Renderer.Render)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <n|id>",
		Short: "Delete a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := env()
			s, err := resolveChat(e.Registry.Sessions(), args[0])
			if err != nil {
				return err
			}
			e.Client.DeleteChat(s.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %q\n", SuccessStyle.Render("✓"), s.DisplayTitle())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <n|id>",
		Short: "Make a chat active for the next interactive session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := env()
			s, err := resolveChat(e.Registry.Sessions(), args[0])
			if err != nil {
				return err
			}
			e.Client.SelectChat(s.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "%s active chat is %q\n", SuccessStyle.Render("✓"), s.DisplayTitle())
			return nil
		},
	})
	return cmd
}

// =============================================================================
// EXPORT
// =============================================================================

func newExportCmd(env func() *Env) *cobra.Command {
	var dir string
	var all bool
	var chat string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Save the latest answer of the active chat as legal_document.md",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := env()
			if chat != "" {
				s, err := resolveChat(e.Registry.Sessions(), chat)
				if err != nil {
					return err
				}
				e.Client.SelectChat(s.ID)
			}

			var path string
			var err error
			if all {
				path, err = e.Client.ExportTranscript(dir)
			} else {
				path, err = e.Client.ExportLast(dir)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s saved %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "o", ".", "output directory")
	cmd.Flags().BoolVar(&all, "all", false, "export the whole chat instead of the latest answer")
	cmd.Flags().StringVar(&chat, "chat", "", "chat number or id (default: active chat)")
	return cmd
}

// =============================================================================
// KEYBOARD / LANGUAGES / CONFIG
// =============================================================================

func newKeyboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "keyboard",
		Short:       "Print the Devanagari keyboard layout",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"env": "none"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), keyboard.Hindi().Render())
		},
	}
}

func newLanguagesCmd(env func() *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List speech languages supported by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := env()
			langs, err := e.Service.SpeechLanguages(cmd.Context())
			if err != nil {
				return err
			}
			current := e.Config.LanguageTag()
			for _, l := range langs {
				marker := "  "
				if strings.EqualFold(l.Code, current) {
					marker = ActiveStyle.Render("* ")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%-8s %s\n", marker, l.Code, l.Name)
			}
			return nil
		},
	}
}

func newConfigCmd(env func() *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), env().Config.String())
			return nil
		},
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// resolveChat finds a chat by 1-based list position or id prefix.
func resolveChat(sessions []*model.Session, ref string) (*model.Session, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(sessions) {
			return nil, fmt.Errorf("%w: #%d (have %d)", errNoSuchChat, n, len(sessions))
		}
		return sessions[n-1], nil
	}

	var match *model.Session
	for _, s := range sessions {
		if ref != "" && strings.HasPrefix(s.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous chat id prefix %q", ref)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", errNoSuchChat, ref)
	}
	return match, nil
}

// writeSessionList prints one line per chat with the active one marked.
func writeSessionList(w io.Writer, sessions []*model.Session, activeID string) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No chats yet. Start one with /new or just type a question."))
		return
	}
	for i, s := range sessions {
		marker := "  "
		title := s.DisplayTitle()
		if s.ID == activeID {
			marker = ActiveStyle.Render("* ")
			title = ActiveStyle.Render(title)
		}
		fmt.Fprintf(w, "%s%2d. %s %s\n", marker, i+1, title,
			DimStyle.Render(fmt.Sprintf("(%d messages, %s)", s.MessageCount(), shortID(s.ID))))
	}
}

// writeTranscript prints every message of s, rendering assistant replies.
func writeTranscript(w io.Writer, s *model.Session, renderMarkdown func(string) string) {
	fmt.Fprintln(w, TitleStyle.Render(s.DisplayTitle()))
	for _, msg := range s.Messages {
		writeMessage(w, msg, renderMarkdown)
	}
}

func writeMessage(w io.Writer, msg model.Message, renderMarkdown func(string) string) {
	switch msg.Role {
	case model.RoleUser:
		fmt.Fprintf(w, "%s %s\n", UserStyle.Render(msg.Role.DisplayName()+":"), msg.Content)
	default:
		fmt.Fprintln(w, AssistantStyle.Render(msg.Role.DisplayName()+":"))
		switch msg.Content {
		case dispatch.ErrorContactingServer, dispatch.UploadErrorMessage:
			fmt.Fprintln(w, ErrorStyle.Render(msg.Content))
		default:
			fmt.Fprintln(w, strings.TrimRight(renderMarkdown(msg.Content), "\n"))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
