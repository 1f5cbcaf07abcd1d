package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTee(t *testing.T) {
	var info, debug bytes.Buffer
	h := Tee(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		nil,
		slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	l := slog.New(h).With("component", "relay")

	l.Debug("poll")
	l.Info("sent", "recipient", "94771461925@s.whatsapp.net")

	assert.NotContains(t, info.String(), "poll")
	assert.Contains(t, info.String(), `"component":"relay"`)
	assert.Contains(t, debug.String(), "poll")
	assert.Contains(t, debug.String(), `"msg":"sent"`)
}

func TestTee_SingleHandlerIsReturnedAsIs(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, nil)
	assert.Same(t, base, Tee(base, nil))
}
