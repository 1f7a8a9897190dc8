package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestSetup_StderrOnly(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, logger)
}

func TestSetup_FileLogging(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsearch.log")

	logger, cleanup, err := Setup(Config{
		Level:     "debug",
		FilePath:  path,
		MaxSizeMB: 1,
		MaxFiles:  2,
	})
	require.NoError(t, err)

	logger.Info("search completed", "strategy", "hybrid", "results", 7)
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "search completed", record["msg"])
	assert.Equal(t, "hybrid", record["strategy"])
	assert.Equal(t, float64(7), record["results"])
}

func TestSetup_LevelFiltering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsearch.log")

	logger, cleanup, err := Setup(Config{
		Level:     "warn",
		FilePath:  path,
		MaxSizeMB: 1,
		MaxFiles:  2,
	})
	require.NoError(t, err)

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestRotatingWriter_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsearch.log")

	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)
	// Force a tiny threshold so a handful of writes triggers rotation.
	w.maxSize = 64

	line := strings.Repeat("x", 40) + "\n"
	for i := 0; i < 4; i++ {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".1")
	require.NoError(t, err, "rotated file should exist")
}

func TestRotatingWriter_MaxFilesPruned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsearch.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	w.maxSize = 32

	line := strings.Repeat("y", 30) + "\n"
	for i := 0; i < 8; i++ {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err), "files beyond maxFiles should be removed")
}
