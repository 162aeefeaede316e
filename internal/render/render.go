// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant Markdown into terminal output.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Theme selects the Markdown color scheme.
type Theme string

const (
	ThemeAuto  Theme = "auto"
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// DefaultWordWrap is the wrap width used when none is given.
const DefaultWordWrap = 80

// ParseTheme validates a theme name. Empty means auto.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case "", ThemeAuto:
		return ThemeAuto, nil
	case ThemeDark:
		return ThemeDark, nil
	case ThemeLight:
		return ThemeLight, nil
	default:
		return "", fmt.Errorf("unknown theme %q (want auto, dark or light)", s)
	}
}

// Resolve maps auto onto dark or light using hasDarkBackground.
func (t Theme) Resolve(hasDarkBackground func() bool) Theme {
	if t != ThemeAuto {
		return t
	}
	if hasDarkBackground != nil && !hasDarkBackground() {
		return ThemeLight
	}
	return ThemeDark
}

// Options configures a Renderer.
type Options struct {
	Theme Theme
	// WordWrap is the wrap width; zero means DefaultWordWrap.
	WordWrap int
	// Plain disables styling, e.g. when stdout is not a terminal.
	Plain bool
}

// Renderer renders Markdown with glamour. It falls back to the raw text
// whenever styling is unavailable.
type Renderer struct {
	tr    *glamour.TermRenderer
	theme Theme
}

// New creates a renderer. Theme auto is resolved against the terminal's
// background color.
func New(opts Options) (*Renderer, error) {
	if opts.Plain {
		return &Renderer{}, nil
	}
	if opts.WordWrap <= 0 {
		opts.WordWrap = DefaultWordWrap
	}
	if opts.Theme == "" {
		opts.Theme = ThemeAuto
	}

	theme := opts.Theme.Resolve(termenv.HasDarkBackground)
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(string(theme)),
		glamour.WithWordWrap(opts.WordWrap),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &Renderer{tr: tr, theme: theme}, nil
}

// Theme returns the resolved theme, or "" for a plain renderer.
func (r *Renderer) Theme() Theme {
	return r.theme
}

// Render returns content styled for the terminal, or content unchanged if
// rendering is disabled or fails.
func (r *Renderer) Render(content string) string {
	if r == nil || r.tr == nil {
		return content
	}
	out, err := r.tr.Render(content)
	if err != nil {
		return content
	}
	return out
}
