// Package preflight verifies the agent's environment before the loop starts:
// the kubo binary, directory permissions, and free disk space.
package preflight
