package logging

import (
	"log/slog"
	"os"
)

// Setup installs a JSON logger on stdout and returns its handler so main can
// fan it out together with the database handler once the DB is reachable.
// Debug records are kept outside production.
func Setup(appEnv string) slog.Handler {
	level := slog.LevelInfo
	if appEnv == "development" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return handler
}
