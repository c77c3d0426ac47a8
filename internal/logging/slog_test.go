package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedSlog(level slog.Level) (*SlogLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})

	return NewSlog(slog.New(handler)), buf
}

func TestNewSlog(t *testing.T) {
	logger, _ := newBufferedSlog(slog.LevelDebug)
	require.NotNil(t, logger.logger)

	require.NotNil(t, NewSlogDefault().logger)
}

func TestSlogLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *SlogLogger)
		level string
		want  string
	}{
		{"debug", func(l *SlogLogger) { l.Debug("task dispatched", "task", 3) }, "level=DEBUG", "task=3"},
		{"info", func(l *SlogLogger) { l.Info("image generated", "ms", 12) }, "level=INFO", "ms=12"},
		{"warn", func(l *SlogLogger) { l.Warn("invalid samples", "samples", 3) }, "level=WARN", "samples=3"},
		{"error", func(l *SlogLogger) { l.Error("worker failed", "worker", "worker-1") }, "level=ERROR", "worker=worker-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferedSlog(slog.LevelDebug)
			tt.log(logger)

			out := buf.String()
			assert.Contains(t, out, tt.level)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferedSlog(slog.LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	require.Empty(t, buf.String())

	logger.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestSlogLogger_With(t *testing.T) {
	logger, buf := newBufferedSlog(slog.LevelInfo)

	logger.With("worker", "worker-2").Info("rendering")
	require.Contains(t, buf.String(), "worker=worker-2")
}
