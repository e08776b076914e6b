package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/bdobrica/termassist/common/trace"
	"github.com/bdobrica/termassist/internal/termassist/observability"
)

func TestSetup_JSONWithTraceAndRedaction(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	observability.Setup("debug", "json", &buf, "sk-test-secret")

	ctx := trace.WithTraceID(context.Background(), "t_123")
	ctx = trace.WithThreadID(ctx, "th-9")
	observability.WithTrace(ctx).Debug("llm call failed", "err", errors.New("bad key sk-test-secret"))

	out := buf.String()
	for _, want := range []string{`"trace_id":"t_123"`, `"thread_id":"th-9"`, `"level":"DEBUG"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "sk-test-secret") {
		t.Errorf("secret leaked: %s", out)
	}
}

func TestSetup_LevelFilters(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	observability.Setup("warn", "text", &buf)
	slog.Info("hidden")
	slog.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestWithTrace_NoContextValues(t *testing.T) {
	if observability.WithTrace(context.Background()) != slog.Default() {
		t.Error("expected the default logger when ctx carries no IDs")
	}
}

func TestScrub(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	observability.Setup("info", "text", &bytes.Buffer{}, "redis-pass-xyz")
	got := observability.Scrub(errors.New("NOAUTH redis-pass-xyz rejected"))
	if got != "NOAUTH [REDACTED] rejected" {
		t.Errorf("got %q", got)
	}
	if observability.Scrub(nil) != "" {
		t.Error("nil error should scrub to empty")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "info": slog.LevelInfo,
		"warn": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := observability.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
