package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// slogLogger bridges whatsmeow's printf-style logger onto slog.
type slogLogger struct {
	l      *slog.Logger
	module string
}

// NewLogger returns a whatsmeow logger writing to l.
func NewLogger(l *slog.Logger) waLog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l.With("component", "whatsmeow")}
}

func (s *slogLogger) log(level slog.Level, msg string, args []interface{}) {
	attrs := []any{}
	if s.module != "" {
		attrs = append(attrs, "module", s.module)
	}
	s.l.Log(context.Background(), level, fmt.Sprintf(msg, args...), attrs...)
}

func (s *slogLogger) Errorf(msg string, args ...interface{}) { s.log(slog.LevelError, msg, args) }
func (s *slogLogger) Warnf(msg string, args ...interface{})  { s.log(slog.LevelWarn, msg, args) }
func (s *slogLogger) Infof(msg string, args ...interface{})  { s.log(slog.LevelInfo, msg, args) }
func (s *slogLogger) Debugf(msg string, args ...interface{}) { s.log(slog.LevelDebug, msg, args) }

// Sub returns a logger tagged with module, nested under the current one.
func (s *slogLogger) Sub(module string) waLog.Logger {
	if s.module != "" {
		module = s.module + "/" + module
	}
	return &slogLogger{l: s.l, module: module}
}
