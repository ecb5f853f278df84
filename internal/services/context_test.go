package services_test

import (
	"context"
	"testing"

	"anchorage/internal/services"
)

func TestCIDRoundTrip(t *testing.T) {
	ctx := services.WithCID(context.Background(), "bafy123")
	cid, ok := services.CIDFromContext(ctx)
	if !ok || cid != "bafy123" {
		t.Fatalf("unexpected cid: %q ok=%v", cid, ok)
	}
}

func TestEmptyCIDIgnored(t *testing.T) {
	ctx := services.WithCID(context.Background(), "")
	if _, ok := services.CIDFromContext(ctx); ok {
		t.Fatal("expected empty cid to be dropped")
	}
}

func TestCycleRoundTrip(t *testing.T) {
	ctx := services.WithCycle(context.Background(), 42)
	cycle, ok := services.CycleFromContext(ctx)
	if !ok || cycle != 42 {
		t.Fatalf("unexpected cycle: %d ok=%v", cycle, ok)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := services.WithRequestID(context.Background(), "req-1")
	id, ok := services.RequestIDFromContext(ctx)
	if !ok || id != "req-1" {
		t.Fatalf("unexpected request id: %q ok=%v", id, ok)
	}
	if _, ok := services.RequestIDFromContext(context.Background()); ok {
		t.Fatal("expected missing request id")
	}
}
