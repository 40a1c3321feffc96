// Package obs contains observability utilities such as logging and metrics.
package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global structured logger used by the service.
//
// Logger is exported to allow other packages to use it for logging. It starts
// as an info-level JSON logger so packages may log before InitLogger runs.
var Logger = newLogger(os.Stdout, slog.LevelInfo)

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// InitLogger initializes the global Logger with a JSON handler at the given
// level and installs it as the slog default.
func InitLogger(level string) {
	Logger = newLogger(os.Stdout, ParseLevel(level))
	slog.SetDefault(Logger)
}

// SetOutput redirects the global Logger to w, keeping the level. Tests use it
// to capture or silence output.
func SetOutput(w io.Writer, level string) {
	Logger = newLogger(w, ParseLevel(level))
}
