package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelWarn, "json"))

	logger.Info("dropped")
	logger.Warn("Settled up", "group_id", "g1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Settled up", entry["msg"])
	assert.Equal(t, "g1", entry["group_id"])

	buf.Reset()
	slog.New(NewHandler(&buf, slog.LevelInfo, "text")).Info("Settled up", "group_id", "g1")
	assert.Contains(t, buf.String(), "Settled up")
	assert.Contains(t, buf.String(), "g1")
}
