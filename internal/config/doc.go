// Package config loads, validates, and defaults the anchorage TOML
// configuration. The swarm secret material (relay address and swarm key) is
// deliberately NOT part of this file; it lives in the separate [ipfs]
// key=value file handled by the swarm package, which the daemon polls every
// cycle until it becomes valid.
package config
