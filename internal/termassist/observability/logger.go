// Package observability provides structured logging helpers for termassist.
//
// It wraps log/slog with trace and thread ID propagation and secret
// redaction so every log line emitted during a turn can be correlated.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/bdobrica/termassist/common/redact"
	"github.com/bdobrica/termassist/common/trace"
)

var scrubber atomic.Pointer[redact.Redactor]

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels. Anything
// else is info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup configures the global slog logger. Output goes to w (stderr when nil)
// so the REPL's stdout carries only the conversation. Values listed in secrets
// are masked in every record and by Scrub.
func Setup(level, format string, w io.Writer, secrets ...string) {
	if w == nil {
		w = os.Stderr
	}
	r := redact.New(secrets...)
	scrubber.Store(r)

	opts := &slog.HandlerOptions{Level: ParseLevel(level), ReplaceAttr: r.ReplaceAttr}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithTrace returns a child logger carrying trace_id and thread_id from ctx.
func WithTrace(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := trace.FromContext(ctx); id != "" {
		logger = logger.With("trace_id", id)
	}
	if id := trace.ThreadFromContext(ctx); id != "" {
		logger = logger.With("thread_id", id)
	}
	return logger
}

// Scrub returns the text of err with configured secrets removed. It is meant
// for error text shown to the user.
func Scrub(err error) string {
	return scrubber.Load().Error(err)
}
