// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Wrap width bounds for rendered replies.
const (
	DefaultTerminalWidth = 80
	MinTerminalWidth     = 40
)

// Terminal describes where vakil is writing.
type Terminal struct {
	// StdoutTTY is true when stdout is a terminal rather than a pipe or file.
	StdoutTTY bool
	// Width in columns, never below MinTerminalWidth.
	Width int
	// Profile is Ascii whenever colors are unwanted.
	Profile termenv.Profile
}

// DetectTerminal inspects stdout and the NO_COLOR / FORCE_COLOR variables.
func DetectTerminal() Terminal {
	fd := int(os.Stdout.Fd())
	t := Terminal{StdoutTTY: term.IsTerminal(fd)}

	w, _, err := term.GetSize(fd)
	if err != nil {
		w = 0
	}
	t.Width = fitWidth(w)

	t.Profile = termenv.Ascii
	if wantColor(os.Getenv, t.StdoutTTY) {
		t.Profile = termenv.ColorProfile()
	}
	return t
}

// wantColor applies https://no-color.org/: NO_COLOR wins, FORCE_COLOR
// overrides a non-terminal stdout.
func wantColor(getenv func(string) string, tty bool) bool {
	switch {
	case getenv("NO_COLOR") != "":
		return false
	case getenv("FORCE_COLOR") != "":
		return true
	default:
		return tty
	}
}

func fitWidth(w int) int {
	switch {
	case w <= 0:
		return DefaultTerminalWidth
	case w < MinTerminalWidth:
		return MinTerminalWidth
	default:
		return w
	}
}
