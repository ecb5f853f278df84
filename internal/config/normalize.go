package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeIPFS(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadsDir) == "" {
		c.Paths.DownloadsDir = defaultDownloadsDir
	}
	if c.Paths.DownloadsDir, err = expandPath(c.Paths.DownloadsDir); err != nil {
		return fmt.Errorf("paths.downloads_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIPFS() error {
	c.IPFS.Binary = strings.TrimSpace(c.IPFS.Binary)
	if c.IPFS.Binary == "" {
		c.IPFS.Binary = defaultIPFSBinary
	}
	if strings.TrimSpace(c.IPFS.RepoDir) == "" {
		c.IPFS.RepoDir = defaultRepoDir
	}
	var err error
	if c.IPFS.RepoDir, err = expandPath(c.IPFS.RepoDir); err != nil {
		return fmt.Errorf("ipfs.repo_dir: %w", err)
	}
	c.IPFS.SwarmConfigFile = strings.TrimSpace(c.IPFS.SwarmConfigFile)
	if c.IPFS.SwarmConfigFile == "" {
		c.IPFS.SwarmConfigFile = defaultSwarmConfigFile
	}
	if c.IPFS.DaemonGraceSeconds <= 0 {
		c.IPFS.DaemonGraceSeconds = defaultDaemonGraceSeconds
	}
	if c.IPFS.AvailabilityTimeoutSec <= 0 {
		c.IPFS.AvailabilityTimeoutSec = defaultAvailabilityTimeoutSec
	}
	if c.IPFS.FetchTimeoutSeconds <= 0 {
		c.IPFS.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
