package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "agentdesk.log")

	logger, err := New(Options{Level: zapcore.InfoLevel, File: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("turn completed", zap.String("session", "session-1"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"turn completed"`)
	assert.Contains(t, out, `"session":"session-1"`)
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestNewOrNopFallsBack(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	logger := NewOrNop(Options{File: filepath.Join(blocker, "sub", "x.log")})
	require.NotNil(t, logger)
	logger.Info("discarded")
}
