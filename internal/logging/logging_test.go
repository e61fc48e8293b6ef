package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "venom.log")
	logger, err := New("info", path, false)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("visible")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
	assert.False(t, strings.Contains(string(data), "hidden"))
}

func TestNewDebugOverridesLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venom.log")
	logger, err := New("error", path, true)
	require.NoError(t, err)
	logger.Debug("shown in debug")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "shown in debug")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New("loud", "", false)
	require.Error(t, err)
}
