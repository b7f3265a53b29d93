package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	quiet := New(false)
	require.NotNil(t, quiet)
	assert.False(t, quiet.Core().Enabled(zapcore.DebugLevel))

	verbose := New(true)
	require.NotNil(t, verbose)
	assert.True(t, verbose.Core().Enabled(zapcore.DebugLevel))
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepmotor.log")

	logger, closeFn, err := NewFile(path, false)
	require.NoError(t, err)
	logger.Info("sequence started")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sequence started")
}

func TestNewFile_BadPath(t *testing.T) {
	_, _, err := NewFile(filepath.Join(t.TempDir(), "missing", "deep", "stepmotor.log"), false)
	assert.Error(t, err)
}
