// Package daemon coordinates the agent runtime: it enforces single-instance
// execution with a file lock, owns the supervisory loop goroutine, and backs
// the IPC control surface.
package daemon
