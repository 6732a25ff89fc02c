package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"WARNING", WarnLevel},
		{"ERROR", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestStructuredLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "0.0.0", WarnLevel)
	logger.SetOutput(&buf)

	logger.Info(context.Background(), "[SKIPPED] not written", Fields{})
	assert.Empty(t, buf.String())

	logger.Warn(context.Background(), "[WRITTEN] written", Fields{"k": "v"})
	assert.Contains(t, buf.String(), "[WRITTEN] written")
}

func TestStructuredLogger_RunIDAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "0.0.0", DebugLevel)
	logger.SetOutput(&buf)

	ctx := WithRunID(context.Background(), "run-42")
	logger.Error(ctx, "[FAILED] boom", Fields{"station_id": "26953"}, errors.New("upstream down"))

	var entry LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "run-42", entry.RunID)
	assert.Equal(t, "upstream down", entry.Error)
	assert.Equal(t, "26953", entry.Fields["station_id"])
	assert.NotEmpty(t, entry.Function)
}

func TestNewFileLogger_AppendsToServiceLog(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger("extractor", "0.0.0", InfoLevel, dir)
	require.NoError(t, err)

	logger.Info(context.Background(), "[HELLO] first line", Fields{})
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(filepath.Join(dir, "extractor.log"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "[HELLO] first line"))
}

func TestContextLogger_MergesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "0.0.0", DebugLevel)
	logger.SetOutput(&buf)

	logger.WithFields(Fields{"station_id": "1", "stage": "A"}).Info(context.Background(), "msg", Fields{"stage": "B"})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "1", entry.Fields["station_id"])
	assert.Equal(t, "B", entry.Fields["stage"])
}
