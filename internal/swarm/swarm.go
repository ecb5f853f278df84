package swarm

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"anchorage/internal/services"
)

// Key names inside the [ipfs] section. The EE_ prefix mirrors the environment
// variables the values are exported as, so operators can set either.
const (
	sectionName  = "ipfs"
	keySwarmKey  = "EE_SWARM_KEY_CONTENT_BASE64"
	keyRelayAddr = "EE_IPFS_RELAY"
)

// Config is the decoded swarm secret material for one node.
type Config struct {
	// SwarmKeyBase64 is the base64-encoded swarm.key file content.
	SwarmKeyBase64 string
	// RelayAddress is the multiaddress of the relay peer to connect to.
	RelayAddress string
}

// Load reads the [ipfs] key=value file at path. When the file does not exist
// an empty template is written so operators have something to fill in, and a
// configuration error is returned. Missing or blank values are also
// configuration errors so the caller can keep waiting for the file.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if werr := writeTemplate(path); werr != nil {
				return nil, werr
			}
			return nil, services.Wrap(services.ErrConfiguration, "swarm", "load",
				fmt.Sprintf("created empty swarm config at %s, fill in %s and %s", path, keySwarmKey, keyRelayAddr), nil)
		}
		return nil, services.Wrap(services.ErrConfiguration, "swarm", "load", "stat swarm config", err)
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "swarm", "load", "parse swarm config", err)
	}

	section := file.Section(sectionName)
	cfg := &Config{
		SwarmKeyBase64: strings.TrimSpace(section.Key(keySwarmKey).String()),
		RelayAddress:   strings.TrimSpace(section.Key(keyRelayAddr).String()),
	}
	if cfg.SwarmKeyBase64 == "" {
		return nil, services.Wrap(services.ErrConfiguration, "swarm", "load",
			fmt.Sprintf("%s is not set in %s", keySwarmKey, path), nil)
	}
	if cfg.RelayAddress == "" {
		return nil, services.Wrap(services.ErrConfiguration, "swarm", "load",
			fmt.Sprintf("%s is not set in %s", keyRelayAddr, path), nil)
	}
	return cfg, nil
}

// DecodeKey returns the raw swarm.key file content.
func (c *Config) DecodeKey() ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(c.SwarmKeyBase64)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "swarm", "decode-key",
			"swarm key is not valid base64", err)
	}
	return decoded, nil
}

// Export publishes the secret material into the process environment so child
// processes (the peer watcher in particular) inherit it.
func (c *Config) Export() error {
	if err := os.Setenv(keySwarmKey, c.SwarmKeyBase64); err != nil {
		return fmt.Errorf("export swarm key: %w", err)
	}
	if err := os.Setenv(keyRelayAddr, c.RelayAddress); err != nil {
		return fmt.Errorf("export relay address: %w", err)
	}
	return nil
}

// WriteKeyFile writes the decoded swarm key into the kubo repository. The key
// is node-secret material, hence the tight mode.
func (c *Config) WriteKeyFile(repoDir string) error {
	payload, err := c.DecodeKey()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(repoDir, 0o755); err != nil {
		return fmt.Errorf("create repo directory: %w", err)
	}
	keyPath := filepath.Join(repoDir, "swarm.key")
	if err := os.WriteFile(keyPath, payload, 0o600); err != nil {
		return fmt.Errorf("write swarm key: %w", err)
	}
	return nil
}

func writeTemplate(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create swarm config directory: %w", err)
		}
	}
	template := fmt.Sprintf("[%s]\n%s=\n%s=\n", sectionName, keySwarmKey, keyRelayAddr)
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("write swarm config template: %w", err)
	}
	return nil
}
