// Package logging configures structured logging with tint.
//
// Usage:
//
//	logging.Setup()                          // level from LOG_LEVEL env
//	logging.SetupWithLevel(slog.LevelDebug)  // explicit level override
//	logging.SetupFormat("json", slog.LevelInfo)
//	logging.SetLevel(slog.LevelWarn)         // adjust at runtime
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Output formats understood by SetupFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// level backs every handler built here, so SetLevel reaches loggers that
// were already handed out.
var level = new(slog.LevelVar)

// Setup configures colored logging at the level specified by LOG_LEVEL env var
// (default: INFO).
func Setup() {
	SetupWithLevel(levelFromEnv())
}

// SetupWithLevel configures colored logging at the given level.
func SetupWithLevel(l slog.Level) {
	level.Set(l)
	slog.SetDefault(slog.New(NewHandler(os.Stderr, FormatText)))
}

// SetupFormat configures logging in the given format at the given level.
func SetupFormat(format string, l slog.Level) error {
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("unknown log format %q", format)
	}
	level.Set(l)
	slog.SetDefault(slog.New(NewHandler(os.Stderr, format)))
	return nil
}

// SetLevel changes the level of every handler built by this package.
func SetLevel(l slog.Level) {
	if level.Level() != l {
		slog.Info("Log level changed", "from", level.Level(), "to", l)
	}
	level.Set(l)
}

// Level returns the current level.
func Level() slog.Level {
	return level.Level()
}

// NewHandler returns a handler writing to w that follows SetLevel.
func NewHandler(w io.Writer, format string) slog.Handler {
	if format == FormatJSON {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
}

// ParseLevel parses debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func levelFromEnv() slog.Level {
	l, _ := ParseLevel(os.Getenv("LOG_LEVEL"))
	return l
}
