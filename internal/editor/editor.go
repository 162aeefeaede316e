// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import "strings"

// =============================================================================
// CARET
// =============================================================================

// Caret is a selection in rune offsets. Start == End means no selection.
type Caret struct {
	Start int
	End   int
}

// At returns a collapsed caret at pos.
func At(pos int) Caret {
	return Caret{Start: pos, End: pos}
}

// Collapsed reports whether the caret has no selection.
func (c Caret) Collapsed() bool {
	return c.Start == c.End
}

// clamp bounds the caret to [0, n] and orders Start <= End.
func (c Caret) clamp(n int) Caret {
	c.Start = clampInt(c.Start, 0, n)
	c.End = clampInt(c.End, 0, n)
	if c.End < c.Start {
		c.Start, c.End = c.End, c.Start
	}
	return c
}

// =============================================================================
// SPLICING
// =============================================================================

// Insert replaces the selection in buf with fragment and returns the new
// buffer and the collapsed caret just after the inserted text. A fragment
// of several runes is inserted as one unit.
func Insert(buf string, caret Caret, fragment string) (string, Caret) {
	runes := []rune(buf)
	c := caret.clamp(len(runes))

	// UNICODE: splice on rune boundaries so multi-byte scripts stay intact.
	var b strings.Builder
	b.Grow(len(buf) + len(fragment))
	b.WriteString(string(runes[:c.Start]))
	b.WriteString(fragment)
	b.WriteString(string(runes[c.End:]))

	return b.String(), At(c.Start + len([]rune(fragment)))
}

// Backspace deletes the selection, or the single rune before the caret when
// nothing is selected. At offset 0 with no selection it is a no-op.
func Backspace(buf string, caret Caret) (string, Caret) {
	runes := []rune(buf)
	c := caret.clamp(len(runes))

	if !c.Collapsed() {
		return string(runes[:c.Start]) + string(runes[c.End:]), At(c.Start)
	}
	if c.Start == 0 {
		return buf, c
	}
	return string(runes[:c.Start-1]) + string(runes[c.End:]), At(c.Start - 1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
