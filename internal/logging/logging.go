// Package logging configures the process-wide structured logger.
// Diagnostic output always goes to stderr, never stdout, so that
// stdout stays reserved for MCP protocol frames.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// FormatEnv selects the handler: "json" (default) or "text".
const FormatEnv = "CTXENGINE_LOG_FORMAT"

// MaxLogContentLen truncates any single logged string value so a huge
// file or chunk body logged by accident cannot blow up log storage.
const MaxLogContentLen = 2000

// Setup builds a slog.Logger writing to stderr in the given level and
// format, installs it as the process default, and returns it.
func Setup(level, format string) *slog.Logger {
	handler := newHandler(parseLevel(level), format)
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func newHandler(level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: truncateLongValues}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.NewJSONHandler(os.Stderr, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func truncateLongValues(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		s := a.Value.String()
		if len(s) > MaxLogContentLen {
			a.Value = slog.StringValue(s[:MaxLogContentLen] + "...[truncated]")
		}
	}
	return a
}
