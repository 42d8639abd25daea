package config

import (
	"context"
	"log/slog"
	"os"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// teeHandler fans one slog record out to several handlers, each with its own
// level gate. The CLI uses it to keep the console quiet while the log file
// records the full run.
type teeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler combines handlers into one. Records go to every handler
// whose level admits them.
func NewTeeHandler(handlers ...slog.Handler) slog.Handler {
	return &teeHandler{handlers: handlers}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}

// BuildLogHandler assembles the CLI's logging stack: warnings and errors on
// stderr (everything when verbose), and the full run at info level in a
// size-rotated log file. An empty logFile disables file logging.
func BuildLogHandler(logFile string, verbose bool) slog.Handler {
	consoleLevel := slog.LevelWarn
	if verbose {
		consoleLevel = slog.LevelDebug
	}
	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: consoleLevel})
	if logFile == "" {
		return console
	}

	fileLevel := slog.LevelInfo
	if verbose {
		fileLevel = slog.LevelDebug
	}
	file := slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   true,
	}, &slog.HandlerOptions{Level: fileLevel})

	return NewTeeHandler(console, file)
}
