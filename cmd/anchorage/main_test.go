package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anchorage/internal/history"
	"anchorage/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	socketPath string
	queuePath  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
cache_dir = %q
downloads_dir = %q
log_dir = %q

[ipfs]
binary = "ipfs"
repo_dir = %q
swarm_config_file = %q
`,
		filepath.Join(base, "cache"),
		filepath.Join(base, "cache", "downloads"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "repo"),
		filepath.Join(base, "ipfs.ini"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}

	return &cliTestEnv{
		baseDir:    base,
		configPath: configPath,
		socketPath: filepath.Join(base, "logs", "anchorage.sock"),
		queuePath:  filepath.Join(base, "cache", "commands.txt"),
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIQueueAddAndShowOffline(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "add", "bafyalpha", "beef"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	if !strings.Contains(out, "Queued bafyalpha") {
		t.Fatalf("unexpected queue add output: %q", out)
	}

	data, err := os.ReadFile(env.queuePath)
	if err != nil {
		t.Fatalf("read queue file: %v", err)
	}
	if !strings.Contains(string(data), "bafyalpha beef") {
		t.Fatalf("queue file missing entry: %q", string(data))
	}

	out, _, err = runCLI(t, []string{"queue", "show"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	if !strings.Contains(out, "bafyalpha") || !strings.Contains(out, "beef") {
		t.Fatalf("queue show missing entry: %q", out)
	}
}

func TestCLIQueueShowEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "show"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("unexpected queue show output: %q", out)
	}
}

func TestCLIStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Not running") {
		t.Fatalf("status output missing offline marker: %q", out)
	}
	if !strings.Contains(out, "Uploads") || !strings.Contains(out, "Snapshots") {
		t.Fatalf("status output missing history section: %q", out)
	}
}

func TestCLITransfersOffline(t *testing.T) {
	env := setupCLITestEnv(t)

	// Seed the history database the agent would normally write.
	if err := os.MkdirAll(filepath.Join(env.baseDir, "logs"), 0o755); err != nil {
		t.Fatalf("create log dir: %v", err)
	}
	store, err := history.OpenPath(filepath.Join(env.baseDir, "logs", "history.db"))
	if err != nil {
		t.Fatalf("history.OpenPath: %v", err)
	}
	testsupport.RecordUpload(t, store, "bafyupload", "notes.txt")
	if err := store.Close(); err != nil {
		t.Fatalf("store.Close: %v", err)
	}

	out, _, err := runCLI(t, []string{"transfers"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("transfers: %v", err)
	}
	if !strings.Contains(out, "bafyupload") || !strings.Contains(out, "upload") {
		t.Fatalf("transfers output missing row: %q", out)
	}
}

func TestCLIKeygen(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"keygen"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("keygen output is not base64: %v", err)
	}
	if !strings.HasPrefix(string(decoded), "/key/swarm/psk/1.0.0/") {
		t.Fatalf("decoded key missing header: %q", string(decoded))
	}
}

func TestCLIConfigInit(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "-p", target}, env.socketPath, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected config init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "-p", target}, env.socketPath, ""); err == nil {
		t.Fatal("expected error when target exists")
	}

	if _, _, err := runCLI(t, []string{"config", "init", "-p", target, "--overwrite"}, env.socketPath, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}
