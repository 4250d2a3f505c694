package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewTeeCollapses(t *testing.T) {
	if _, ok := newTee(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newTee(nil, inner); h != slog.Handler(inner) {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestTeeLoggerRespectsPerHandlerLevel(t *testing.T) {
	var console, file bytes.Buffer
	base := slog.New(newConsoleHandler(&console, slog.LevelWarn, false))
	logger := TeeLogger(base, newJSONHandler(&file, slog.LevelDebug)).With(String(FieldJobID, "job-1"))
	logger.Debug("batch done")
	logger.Warn("native failed")

	if strings.Contains(console.String(), "batch done") {
		t.Fatal("console handler should drop debug records")
	}
	if !strings.Contains(console.String(), "native failed job_id=job-1") {
		t.Fatalf("console handler missing warn record: %s", console.String())
	}
	if !strings.Contains(file.String(), "batch done") || !strings.Contains(file.String(), `"job_id":"job-1"`) {
		t.Fatalf("file handler missing records or attrs: %s", file.String())
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("tee should be enabled when any handler accepts the level")
	}
}

func TestTeeWithGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := newTee(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	slog.New(h.WithGroup("batch")).Info("ok", "size", 128)
	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"batch":{"size":128}`) {
			t.Fatalf("expected grouped attr, got %s", out)
		}
	}
}
