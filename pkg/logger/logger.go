package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns JSON logger writing to stdout. Level comes from LOG_LEVEL,
// then from the given config value, default info.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h)
}

// ParseLevel resolves the effective level; LOG_LEVEL wins over cfgLevel.
func ParseLevel(cfgLevel string) slog.Level {
	level := slog.LevelInfo
	for _, v := range []string{cfgLevel, os.Getenv("LOG_LEVEL")} {
		if v == "" {
			continue
		}
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(v)); err == nil {
			level = parsed
		}
	}
	return level
}
