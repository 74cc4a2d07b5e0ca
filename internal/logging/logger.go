// Package logging provides centralized logging for the mail receiver.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Wire log direction tags.
const (
	DirSend = "SND"
	DirRecv = "RCV"
)

// contextKey is used for storing loggers in context.
type contextKey struct{}

var loggerKey = contextKey{}

// NewLogger creates a new slog.Logger with the specified level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: lvl,
	}
	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler)
}

// WithSession returns a new logger with session-specific attributes for
// log correlation.
func WithSession(logger *slog.Logger, sessionID, clientIP string) *slog.Logger {
	return logger.With(
		slog.String("session_id", sessionID),
		slog.String("client_ip", clientIP),
	)
}

// WithListener returns a new logger with listener-specific attributes.
func WithListener(logger *slog.Logger, address string) *slog.Logger {
	return logger.With(
		slog.String("listener", address),
	)
}

// WireLine records one exchanged SMTP line, tagged with its direction.
// The session id and client IP ride on the logger's attributes. Callers gate
// this on the log_verbose option, so it logs at Info to be visible at the
// default level.
func WireLine(logger *slog.Logger, direction, line string) {
	logger.Info("wire",
		slog.String("dir", direction),
		slog.String("line", line),
	)
}

// FromContext retrieves the logger from the context.
// Returns the default logger if none is found.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// NewContext returns a new context with the logger attached.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}
