// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keyboard provides the on-screen Devanagari keyboard.
//
// Keys are plain tokens fed to the editor as fragments. The package has no
// script-specific logic beyond the default layout table.
package keyboard

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/vakil/internal/editor"
)

// Special tokens.
const (
	KeySpace     = "SPACE"
	KeyBackspace = "BACKSPACE"
)

// Layout is a set of key rows.
type Layout struct {
	Name string
	Rows [][]string
}

// Hindi returns the default Devanagari layout: vowels, four consonant rows,
// the conjuncts and the control keys.
func Hindi() Layout {
	return Layout{
		Name: "hi",
		Rows: [][]string{
			strings.Fields("ऄ अ आ इ ई उ ऊ ए ऐ ओ औ"),
			strings.Fields("क ख ग घ ङ च छ ज झ ञ"),
			strings.Fields("ट ठ ड ढ ण त थ द ध न"),
			strings.Fields("प फ ब भ म य र ल व"),
			strings.Fields("श ष स ह ळ क्ष ज्ञ"),
			{KeyBackspace, KeySpace},
		},
	}
}

// Has reports whether token is a key in the layout.
func (l Layout) Has(token string) bool {
	for _, row := range l.Rows {
		for _, key := range row {
			if key == token {
				return true
			}
		}
	}
	return false
}

// Key returns the token at row r, column c.
func (l Layout) Key(r, c int) (string, bool) {
	if r < 0 || r >= len(l.Rows) || c < 0 || c >= len(l.Rows[r]) {
		return "", false
	}
	return l.Rows[r][c], true
}

// Press applies a key token to buf. SPACE inserts a space, BACKSPACE
// deletes, anything else is inserted as one fragment.
func Press(buf *editor.Buffer, token string) {
	switch token {
	case KeySpace:
		buf.Insert(" ")
	case KeyBackspace:
		buf.Backspace()
	case "":
	default:
		buf.Insert(token)
	}
}

// Render lays the rows out in aligned columns. Cell width is measured in
// terminal columns so combining marks do not skew the grid.
func (l Layout) Render() string {
	width := 0
	for _, row := range l.Rows {
		for _, key := range row {
			if w := runewidth.StringWidth(label(key)); w > width {
				width = w
			}
		}
	}

	var b strings.Builder
	for i, row := range l.Rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, key := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("[")
			b.WriteString(runewidth.FillRight(label(key), width))
			b.WriteString("]")
		}
	}
	return b.String()
}

func label(key string) string {
	switch key {
	case KeySpace:
		return "␣"
	case KeyBackspace:
		return "⌫"
	default:
		return key
	}
}
