package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWritesStructuredField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := New(zap.New(core))

	log.WarnObj("request skipped", "poll_state", map[string]any{"in_flight": true})

	entries := logs.FilterMessage("request skipped").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("unexpected level %v", entries[0].Level)
	}
	if _, ok := entries[0].ContextMap()["poll_state"]; !ok {
		t.Fatalf("missing poll_state field: %#v", entries[0].ContextMap())
	}
}

func TestEnsureFallsBackToNop(t *testing.T) {
	if _, ok := Ensure(nil).(NopLogger); !ok {
		t.Fatalf("expected NopLogger for nil input")
	}
	if _, ok := New(nil).(NopLogger); !ok {
		t.Fatalf("expected NopLogger for nil zap logger")
	}
}
