// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	logger, cleanup, err := New(Options{Dir: dir})
	require.NoError(t, err)

	logger.Info("session created", zap.String("session_id", "abc"))
	logger.Debug("hidden at info level")
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "vakil.log"))
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"session created"`)
	assert.Contains(t, out, `"session_id":"abc"`)
	assert.False(t, strings.Contains(out, "hidden at info level"))
}

func TestNew_NoSinksIsNop(t *testing.T) {
	logger, cleanup, err := New(Options{})
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, logger)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
