package logging

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"darkroom/internal/services"
)

func newTestConsoleLogger(buf *strings.Builder) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	return slog.New(newConsoleHandler(buf, lvl, false))
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleHandlerRendersComponentPrefix(t *testing.T) {
	var buf strings.Builder
	logger := NewComponentLogger(newTestConsoleLogger(&buf), "fetch")

	logger.Info("artifact stored", String("item", "https://example.com/a.jpg"))

	line := buf.String()
	if !strings.Contains(line, "INFO fetch: artifact stored") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "item=https://example.com/a.jpg") {
		t.Fatalf("missing item attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf strings.Builder
	logger := newTestConsoleLogger(&buf)

	logger.Warn("sweep skipped", String("reason", "directory missing"))

	if !strings.Contains(buf.String(), `reason="directory missing"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestWithContextAddsRunAndItemFields(t *testing.T) {
	var buf strings.Builder
	base := newTestConsoleLogger(&buf)

	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithItem(ctx, "https://example.com/b.png")
	ctx = services.WithStage(ctx, "publish")

	WithContext(ctx, base).Info("stage completed")

	line := buf.String()
	for _, want := range []string{"run_id=run-1", "item=https://example.com/b.png", "stage=publish"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
}

func TestNoopLoggerDiscards(t *testing.T) {
	if NewNop().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should be disabled")
	}
}
