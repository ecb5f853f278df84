package swarm_test

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anchorage/internal/services"
	"anchorage/internal/swarm"
)

func TestLoadMissingFileCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swarm", "ipfs.ini")

	_, err := swarm.Load(path)
	if err == nil {
		t.Fatal("expected configuration error for missing file")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error %v is not a configuration error", err)
	}

	body, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("template not created: %v", readErr)
	}
	for _, want := range []string{"[ipfs]", "EE_SWARM_KEY_CONTENT_BASE64=", "EE_IPFS_RELAY="} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("template missing %q:\n%s", want, body)
		}
	}
}

func TestLoadRejectsBlankValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipfs.ini")
	content := "[ipfs]\nEE_SWARM_KEY_CONTENT_BASE64=abcd\nEE_IPFS_RELAY=\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := swarm.Load(path)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "EE_IPFS_RELAY") {
		t.Fatalf("error should name the missing key: %v", err)
	}
}

func TestLoadParsesUnquotedMultiaddress(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("/key/swarm/psk/1.0.0/\n/base16/\nffff\n"))
	path := filepath.Join(t.TempDir(), "ipfs.ini")
	content := "[ipfs]\n" +
		"EE_SWARM_KEY_CONTENT_BASE64=" + key + "\n" +
		"EE_IPFS_RELAY=/ip4/203.0.113.7/tcp/4001/p2p/12D3KooWExample\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := swarm.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RelayAddress != "/ip4/203.0.113.7/tcp/4001/p2p/12D3KooWExample" {
		t.Fatalf("relay = %q", cfg.RelayAddress)
	}
	decoded, err := cfg.DecodeKey()
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	if !strings.HasPrefix(string(decoded), "/key/swarm/psk/1.0.0/") {
		t.Fatalf("decoded key = %q", decoded)
	}
}

func TestDecodeKeyRejectsBadBase64(t *testing.T) {
	cfg := &swarm.Config{SwarmKeyBase64: "not base64!!", RelayAddress: "/ip4/1.2.3.4/tcp/4001"}
	if _, err := cfg.DecodeKey(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWriteKeyFilePermissions(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	cfg := &swarm.Config{
		SwarmKeyBase64: base64.StdEncoding.EncodeToString([]byte("secret")),
		RelayAddress:   "/ip4/1.2.3.4/tcp/4001",
	}
	if err := cfg.WriteKeyFile(repo); err != nil {
		t.Fatalf("WriteKeyFile: %v", err)
	}

	info, err := os.Stat(filepath.Join(repo, "swarm.key"))
	if err != nil {
		t.Fatalf("stat swarm.key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("swarm.key mode = %o, want 600", perm)
	}
}

func TestGenerateKeyFormat(t *testing.T) {
	payload, err := swarm.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(payload), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("key has %d lines, want 3:\n%s", len(lines), payload)
	}
	if lines[0] != "/key/swarm/psk/1.0.0/" || lines[1] != "/base16/" {
		t.Fatalf("unexpected header lines %q %q", lines[0], lines[1])
	}
	if len(lines[2]) != 64 {
		t.Fatalf("secret is %d hex chars, want 64", len(lines[2]))
	}

	other, err := swarm.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if string(other) == string(payload) {
		t.Fatal("two generated keys are identical")
	}
}

func TestExportSetsEnvironment(t *testing.T) {
	t.Setenv("EE_SWARM_KEY_CONTENT_BASE64", "")
	t.Setenv("EE_IPFS_RELAY", "")

	cfg := &swarm.Config{SwarmKeyBase64: "a2V5", RelayAddress: "/dns4/relay.example/tcp/4001"}
	if err := cfg.Export(); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if got := os.Getenv("EE_SWARM_KEY_CONTENT_BASE64"); got != "a2V5" {
		t.Fatalf("exported key = %q", got)
	}
	if got := os.Getenv("EE_IPFS_RELAY"); got != "/dns4/relay.example/tcp/4001" {
		t.Fatalf("exported relay = %q", got)
	}
}
