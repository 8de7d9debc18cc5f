package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-123")
	if lc := GetContext(ctx); lc.RunID != "run-123" {
		t.Errorf("expected run-123, got %s", lc.RunID)
	}
}

func TestContextChaining(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithCommand(ctx, "check")
	ctx = WithRunID(ctx, "run-2")

	lc := GetContext(ctx)
	if lc.RunID != "run-2" {
		t.Errorf("expected run-2, got %s", lc.RunID)
	}
	if lc.Command != "check" {
		t.Error("Command was lost in chaining")
	}
}

func TestEmptyContext(t *testing.T) {
	lc := GetContext(context.Background())
	if lc.RunID != "" || lc.Command != "" {
		t.Error("expected empty context")
	}
}

func TestLogIncludesContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := WithRunID(context.Background(), "abc")
	InfoContext(ctx, "Run started", slog.Int("targets", 6))
	DebugContext(context.Background(), "no context")

	out := buf.String()
	if !strings.Contains(out, "run_id=abc") || !strings.Contains(out, "targets=6") {
		t.Errorf("missing attributes in %q", out)
	}
	if strings.Count(out, "run_id=") != 1 {
		t.Errorf("run_id should only appear on the first record: %q", out)
	}
}
