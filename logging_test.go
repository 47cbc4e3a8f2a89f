package auth_test

import (
	"bytes"
	"log/slog"
	"testing"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
)

func TestSlogLogger(t *testing.T) {
	out := &bytes.Buffer{}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := auth.NewSlogLogger(slog.New(handler)).With("component", "auth")

	var _ auth.Logger = logger

	logger.Debug("debug message", "key", "value")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message", "count", 2)

	logs := out.String()
	assert.Contains(t, logs, "level=DEBUG msg=\"debug message\" component=auth key=value")
	assert.Contains(t, logs, "level=INFO msg=\"info message\" component=auth")
	assert.Contains(t, logs, "level=WARN msg=\"warn message\"")
	assert.Contains(t, logs, "level=ERROR msg=\"error message\" component=auth count=2")
}

func TestSlogLoggerDefault(t *testing.T) {
	assert.NotNil(t, auth.NewSlogLogger(nil))
}
