package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.uber.org/fx/fxevent"
)

func TestNewProvidesJSONLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := New()
	if l == nil {
		t.Fatal("expected logger, got nil")
	}

	if !l.Enabled(context.Background(), slog.LevelInfo) {
		t.Errorf("expected info level to be enabled")
	}
	if l.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("did not expect debug level to be enabled")
	}

	if _, ok := l.Handler().(*slog.JSONHandler); !ok {
		t.Fatalf("expected JSON handler, got %T", l.Handler())
	}
}

func TestNewHonoursLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	if !New().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			if got := ParseLevel(in); got != want {
				t.Fatalf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestFxLoggerWritesThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	fl := FxLogger(NewWithWriter(&buf, slog.LevelInfo))
	if _, ok := fl.(*fxevent.SlogLogger); !ok {
		t.Fatalf("expected slog event logger, got %T", fl)
	}

	fl.LogEvent(&fxevent.Started{})
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "started" {
		t.Fatalf("expected started event, got %v", entry["msg"])
	}
}
