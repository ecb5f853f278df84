package services_test

import (
	"errors"
	"strings"
	"testing"

	"anchorage/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("exit status 1")
	err := services.Wrap(services.ErrDaemonStart, "supervisor", "init", "ipfs init failed", base)
	if !errors.Is(err, services.ErrDaemonStart) {
		t.Fatalf("expected ErrDaemonStart marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	if !strings.Contains(err.Error(), "supervisor: init: ipfs init failed") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "gateway", "add", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default ErrExternalTool marker, got %v", err)
	}
}

func TestWrapWithoutDetailUsesFallback(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestRecoverableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"configuration", services.Wrap(services.ErrConfiguration, "swarm", "load", "missing fields", nil), true},
		{"daemon start", services.Wrap(services.ErrDaemonStart, "supervisor", "identity", "", nil), true},
		{"unavailable", services.Wrap(services.ErrUnavailable, "gateway", "probe", "", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "gateway", "get", "", nil), true},
		{"fetch shape", services.Wrap(services.ErrFetchShape, "gateway", "get", "", nil), false},
		{"external tool", services.Wrap(services.ErrExternalTool, "runner", "run", "", nil), false},
	}
	for _, tc := range cases {
		if got := services.Recoverable(tc.err); got != tc.want {
			t.Errorf("%s: Recoverable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
