package app

import (
	"io"
	"log/slog"
)

// newLogger builds the application logger from cfg without touching the
// global one. Unknown levels fall back to info and unknown formats to text.
// At debug level every record carries its source position.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}

// parseLevel accepts slog's level names in any case, with offsets such as
// "info+2".
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
