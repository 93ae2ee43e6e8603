package cli

import (
	"io"
	"log/slog"
	"strings"
)

// setupLogging installs the process-wide slog handler. --verbose forces
// debug; otherwise the configured level applies.
func setupLogging(w io.Writer, level string, verbose bool) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level, verbose),
	})))
}

func parseLogLevel(level string, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
