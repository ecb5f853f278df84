package testsupport

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"anchorage/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.DownloadsDir = filepath.Join(base, "cache", "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.IPFS.RepoDir = filepath.Join(base, "repo")
	cfgVal.IPFS.SwarmConfigFile = filepath.Join(base, "ipfs.ini")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithNtfyTopic sets the notification topic on the test config.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithSwarmConfig writes a populated swarm settings file next to the config.
// The key material is random but valid base64 so loading succeeds.
func WithSwarmConfig(relayAddress string) ConfigOption {
	return func(b *configBuilder) {
		key := base64.StdEncoding.EncodeToString([]byte("/key/swarm/psk/1.0.0/\n/base16/\n" +
			"0000000000000000000000000000000000000000000000000000000000000000\n"))
		content := "[ipfs]\nEE_SWARM_KEY_CONTENT_BASE64=" + key + "\nEE_IPFS_RELAY=" + relayAddress + "\n"
		if err := os.WriteFile(b.cfg.SwarmConfigPath(), []byte(content), 0o644); err != nil {
			b.t.Fatalf("write swarm config: %v", err)
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the kubo binary is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ipfs"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}
