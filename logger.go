package tensorarena

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with arena-specific helpers and consistent field
// names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at Info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// WithArena tags every record with the arena name.
func (l *Logger) WithArena(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("arena", name),
	}
}

// LogStats logs a summary of s at Info level.
func (l *Logger) LogStats(ctx context.Context, s Stats) {
	l.InfoContext(ctx, "arena stats",
		"used", s.Used,
		"capacity", s.Capacity,
		"free", s.FreeBytes,
		"regions", s.FreeRegions,
		"allocs", s.Allocs,
		"frees", s.Frees,
		"growths", s.Growths,
		"utilization", s.Utilization(),
	)
}

// LogSnapshot logs a snapshot save.
func (l *Logger) LogSnapshot(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"name", name,
		)
	}
}

// LogRestore logs a snapshot load.
func (l *Logger) LogRestore(ctx context.Context, name string, capacity int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "arena restored",
			"name", name,
			"capacity", capacity,
		)
	}
}
