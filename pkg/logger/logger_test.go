package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("info", "json", zapcore.AddSync(&buf))

	log.Debug("hidden")
	log.Info("Created todo", zap.String("text", "buy milk"))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Created todo", entry["msg"])
	assert.Equal(t, "buy milk", entry["text"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "caller")
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := NewLogger(tt.level, "json")
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("debug", "console", zapcore.AddSync(&buf))
	log.Warn("Failed to publish todo event")
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.Contains(t, out, "Failed to publish todo event")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
