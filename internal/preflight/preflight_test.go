package preflight_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anchorage/internal/preflight"
	"anchorage/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := preflight.CheckDirectoryAccess("Cache directory", dir)
	if !result.Passed {
		t.Fatalf("writable dir failed: %+v", result)
	}

	missing := preflight.CheckDirectoryAccess("Cache directory", filepath.Join(dir, "nope"))
	if missing.Passed {
		t.Fatal("missing dir passed")
	}
	if !strings.Contains(missing.Detail, "does not exist") {
		t.Fatalf("detail = %q", missing.Detail)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	notDir := preflight.CheckDirectoryAccess("Cache directory", file)
	if notDir.Passed {
		t.Fatal("plain file passed directory check")
	}
}

func TestCheckBinary(t *testing.T) {
	if result := preflight.CheckBinary("shell", "sh"); !result.Passed {
		t.Fatalf("sh should resolve: %+v", result)
	}
	if result := preflight.CheckBinary("ipfs binary", "definitely-not-a-real-binary"); result.Passed {
		t.Fatal("bogus binary passed")
	}
	if result := preflight.CheckBinary("ipfs binary", "  "); result.Passed || result.Detail != "command not configured" {
		t.Fatalf("blank binary result = %+v", result)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	result := preflight.CheckFreeSpace("Cache volume", t.TempDir())
	if !strings.Contains(result.Detail, "GiB free") {
		t.Fatalf("detail = %q", result.Detail)
	}
}

func TestRunAllCoversEnvironment(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := preflight.RunAll(cfg)
	if len(results) != 5 {
		t.Fatalf("got %d results", len(results))
	}
	for _, result := range results {
		if !result.Passed {
			t.Fatalf("check %q failed: %s", result.Name, result.Detail)
		}
	}
}
