// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTheme(t *testing.T) {
	tests := []struct {
		in      string
		want    Theme
		wantErr bool
	}{
		{"", ThemeAuto, false},
		{"auto", ThemeAuto, false},
		{"Dark", ThemeDark, false},
		{" light ", ThemeLight, false},
		{"solarized", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTheme(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestThemeResolve(t *testing.T) {
	dark := func() bool { return true }
	light := func() bool { return false }

	assert.Equal(t, ThemeDark, ThemeAuto.Resolve(dark))
	assert.Equal(t, ThemeLight, ThemeAuto.Resolve(light))
	assert.Equal(t, ThemeDark, ThemeAuto.Resolve(nil))
	assert.Equal(t, ThemeLight, ThemeLight.Resolve(dark))
	assert.Equal(t, ThemeDark, ThemeDark.Resolve(light))
}

func TestRender_Plain(t *testing.T) {
	r, err := New(Options{Plain: true})
	require.NoError(t, err)
	assert.Equal(t, "# Notice\n", r.Render("# Notice\n"))
	assert.Equal(t, Theme(""), r.Theme())
}

func TestRender_Styled(t *testing.T) {
	r, err := New(Options{Theme: ThemeLight, WordWrap: 60})
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, r.Theme())

	out := r.Render("# Legal Notice\n\nPayment is **overdue**.")
	assert.Contains(t, out, "Legal Notice")
	assert.Contains(t, out, "overdue")
}

func TestRender_NilRenderer(t *testing.T) {
	var r *Renderer
	assert.Equal(t, "text", r.Render("text"))
}
