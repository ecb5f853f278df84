package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateIPFS(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.CycleIntervalSeconds <= 0 {
		return errors.New("workflow.cycle_interval_seconds must be positive")
	}
	if c.Workflow.PublishIntervalSeconds <= 0 {
		return errors.New("workflow.publish_interval_seconds must be positive")
	}
	if c.Workflow.PublishIntervalSeconds < c.Workflow.CycleIntervalSeconds {
		return errors.New("workflow.publish_interval_seconds must be at least the cycle interval")
	}
	return nil
}

func (c *Config) validateIPFS() error {
	if c.IPFS.Binary == "" {
		return errors.New("ipfs.binary must be set")
	}
	if c.IPFS.RepoDir == "" {
		return errors.New("ipfs.repo_dir must be set")
	}
	if c.IPFS.FetchTimeoutSeconds <= 0 {
		return errors.New("ipfs.fetch_timeout_seconds must be positive")
	}
	return nil
}
