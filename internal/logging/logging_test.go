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

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given a config pointing at a temp log file
	logPath := filepath.Join(t.TempDir(), "naragtive.log")
	cfg := Config{
		Level:     "info",
		FilePath:  logPath,
		MaxSizeMB: 1,
		MaxFiles:  2,
	}

	// When setting up and logging a line
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Info("search completed", "store", "chronicle", "results", 5)
	cleanup()

	// Then the file contains a JSON record with the attributes
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "search completed", entry["msg"])
	assert.Equal(t, "chronicle", entry["store"])
}

func TestSetup_LevelFiltersDebug(t *testing.T) {
	// Given an info-level config
	logPath := filepath.Join(t.TempDir(), "naragtive.log")
	logger, cleanup, err := Setup(Config{Level: "info", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 1})
	require.NoError(t, err)

	// When logging at debug
	logger.Debug("noise")
	cleanup()

	// Then nothing is written
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}

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
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	// Given a writer with a tiny size limit
	logPath := filepath.Join(t.TempDir(), "naragtive.log")
	w, err := NewRotatingWriter(logPath, 1, 3)
	require.NoError(t, err)
	defer w.Close()
	w.maxSize = 64 // shrink below the MB floor for the test

	// When writing past the limit
	line := []byte(strings.Repeat("x", 40) + "\n")
	_, err = w.Write(line)
	require.NoError(t, err)
	_, err = w.Write(line)
	require.NoError(t, err)

	// Then the first write was rotated aside
	rotated, err := os.ReadFile(logPath + ".1")
	require.NoError(t, err)
	assert.Len(t, rotated, len(line))

	current, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Len(t, current, len(line))
}

func TestRotatingWriter_DropsOldestBeyondMaxFiles(t *testing.T) {
	// Given a writer keeping a single rotated file
	logPath := filepath.Join(t.TempDir(), "naragtive.log")
	w, err := NewRotatingWriter(logPath, 1, 1)
	require.NoError(t, err)
	defer w.Close()
	w.maxSize = 16

	// When rotating three times
	for i := 0; i < 3; i++ {
		_, err = w.Write([]byte(strings.Repeat("y", 20)))
		require.NoError(t, err)
	}

	// Then only .1 survives
	_, err = os.Stat(logPath + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(logPath + ".2")
	assert.True(t, os.IsNotExist(err))
}
