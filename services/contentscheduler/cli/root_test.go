package cli

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildLogger_HonorsEveryLevel(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"garbage", slog.LevelInfo, slog.LevelDebug}, // unknown falls back to info
	}
	for _, tt := range tests {
		logger := buildLogger(tt.level, "content-scheduler")
		assert.True(t, logger.Enabled(ctx, tt.enabled), tt.level)
		assert.False(t, logger.Enabled(ctx, tt.muted), tt.level)
	}
}
