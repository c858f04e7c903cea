package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: human-readable text on stderr at the
// configured level, plus a JSON trail in logFile that captures everything
// down to debug. The returned cleanup closes the file.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(handler), func() error { return nil }
	}
	return slog.New(fanout(os.Stderr, file, level)), file.Close
}

// SetupLoggerWithWriters builds the same dual-output logger over custom
// writers (for testing).
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return slog.New(fanout(stderr, file, level))
}

// fanout duplicates records to a text handler gated by the configured level
// and a JSON handler that keeps the full trail.
func fanout(stderr, file io.Writer, level slog.Level) slog.Handler {
	return slogmulti.Fanout(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
}
