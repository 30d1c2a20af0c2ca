package logging

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"":        LevelInfo,
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		" error ": LevelError,
	}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) got=%s want=%s", raw, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unsupported level")
	}
}

func TestLogger_WritesKeyValueFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).Named("livesync").With("run_id", "r-1")

	logger.WarnContext(context.Background(), "fetch skipped", "match_id", int64(42), "error", errors.New("boom"), "dangling")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("unexpected entry count got=%d want=1", len(entries))
	}
	entry := entries[0]
	if entry.LoggerName != "livesync" {
		t.Fatalf("unexpected logger name: %q", entry.LoggerName)
	}
	fields := entry.ContextMap()
	if fields["run_id"] != "r-1" {
		t.Fatalf("missing run_id field: %#v", fields)
	}
	if fields["match_id"] != int64(42) {
		t.Fatalf("unexpected match_id field: %#v", fields["match_id"])
	}
	if fields["error"] != "boom" {
		t.Fatalf("unexpected error field: %#v", fields["error"])
	}
	if _, ok := fields["dangling"]; !ok {
		t.Fatalf("expected dangling key to be kept: %#v", fields)
	}
}

func TestLogger_NilReceiverFallsBackToDefault(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	logger.With("k", "v").Error("still no panic")
}
