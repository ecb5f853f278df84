package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir     string `toml:"cache_dir"`
	DownloadsDir string `toml:"downloads_dir"`
	LogDir       string `toml:"log_dir"`
}

// IPFS contains configuration for the external kubo daemon and its CLI.
type IPFS struct {
	Binary                 string `toml:"binary"`
	RepoDir                string `toml:"repo_dir"`
	SwarmConfigFile        string `toml:"swarm_config_file"`
	DaemonGraceSeconds     int    `toml:"daemon_grace_seconds"`
	AvailabilityTimeoutSec int    `toml:"availability_timeout_seconds"`
	FetchTimeoutSeconds    int    `toml:"fetch_timeout_seconds"`
}

// Workflow contains supervisory loop timing configuration.
type Workflow struct {
	CycleIntervalSeconds   int  `toml:"cycle_interval_seconds"`
	PublishIntervalSeconds int  `toml:"publish_interval_seconds"`
	SpawnPeerWatcher       bool `toml:"spawn_peer_watcher"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for anchorage.
//
// Configuration sections by subsystem:
//   - Paths: working directories (queue/ledger files live under CacheDir)
//   - IPFS: kubo binary, repository location, and operation timeouts
//   - Workflow: loop cadence and status publish interval
//   - Logging: log format and level
//   - Notifications: optional ntfy push settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	IPFS          IPFS          `toml:"ipfs"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path of the default config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/anchorage/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("anchorage.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs to operate.
// Everything below CacheDir (queue file, ledger, downloads) depends on it, so
// failure here is fatal for the process.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.DownloadsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SwarmConfigPath returns the absolute path of the [ipfs] key=value file.
func (c *Config) SwarmConfigPath() string {
	if filepath.IsAbs(c.IPFS.SwarmConfigFile) {
		return c.IPFS.SwarmConfigFile
	}
	return filepath.Join(c.Paths.CacheDir, c.IPFS.SwarmConfigFile)
}

// CommandQueuePath returns the absolute path of the command queue file.
func (c *Config) CommandQueuePath() string {
	return filepath.Join(c.Paths.CacheDir, "commands.txt")
}

// LedgerPath returns the absolute path of the published-CID ledger file.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.CacheDir, "generated_cids.txt")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
