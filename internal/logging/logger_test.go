package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"anchorage/internal/services"
)

func TestConsoleHandlerRendersComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl)).With(String(FieldComponent, "gateway"))

	logger.Info("content added", String(FieldCID, "bafyabc"), Int("size", 12))

	line := buf.String()
	if !strings.Contains(line, "INFO gateway: content added") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "cid=bafyabc") || !strings.Contains(line, "size=12") {
		t.Fatalf("missing attrs: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Warn("relay connect", String("result", "no route to host"))

	if !strings.Contains(buf.String(), `result="no route to host"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed at warn level, got %q", buf.String())
	}
	logger.Error("kept")
	if !strings.Contains(buf.String(), "ERROR kept") {
		t.Fatalf("expected error record, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, lvl))

	ctx := services.WithCID(context.Background(), "bafyxyz")
	ctx = services.WithCycle(ctx, 7)
	WithContext(ctx, base).Info("probe")

	line := buf.String()
	if !strings.Contains(line, "cid=bafyxyz") || !strings.Contains(line, "cycle=7") {
		t.Fatalf("missing context fields: %q", line)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing happens")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected nop logger to be disabled")
	}
}
