// Package logging настраивает структурированное логирование через log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup создает логгер по уровню и формату ("text" или "json") и делает его логгером по умолчанию.
func Setup(level, format string, out io.Writer) *slog.Logger {
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel переводит строковый уровень в slog.Level, по умолчанию INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
