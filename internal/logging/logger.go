package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a JSON slog logger on stderr and returns its handler so
// callers can fan it out further.
func Setup(level slog.Level) slog.Handler {
	return SetupWriter(os.Stderr, level)
}

func SetupWriter(w io.Writer, level slog.Level) slog.Handler {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return handler
}
