package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetupDebugLevel(t *testing.T) {
	logger, err := Setup(Options{Debug: true, AppName: "repodiff", AppVersion: "test"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	assert.Same(t, logger, Logger)

	logger, err = Setup(Options{AppName: "repodiff", AppVersion: "test"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestSetupWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repodiff.log")
	logger, err := Setup(Options{File: path, AppName: "repodiff", AppVersion: "1.2.3"})
	require.NoError(t, err)

	logger.Info("applied changes", zap.Int("files", 2))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.NotEmpty(t, lines)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &rec))
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "applied changes", rec["msg"])
	assert.Equal(t, "repodiff", rec["appName"])
	assert.Equal(t, "1.2.3", rec["appVersion"])
	assert.Equal(t, float64(2), rec["files"])
}
