package app

import (
	"context"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevelFromConfig(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		logger := NewLogger(&Config{LogLevel: tc.level})
		assert.True(t, logger.Enabled(context.Background(), tc.want), tc.level)
		if tc.want > slog.LevelDebug {
			assert.False(t, logger.Enabled(context.Background(), tc.want-4), tc.level)
		}
	}
}

func TestLoggerNilConfigDefaultsToInfo(t *testing.T) {
	logger := NewLogger(nil)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
