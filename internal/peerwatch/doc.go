// Package peerwatch is the optional sidecar that polls the daemon for its
// connected peer count and logs the trend. It runs as a child process of the
// agent so a wedged poll can never stall a cycle.
package peerwatch
