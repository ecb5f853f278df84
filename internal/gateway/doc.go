// Package gateway moves content between the local filesystem and the private
// swarm. It remembers what it has shared and fetched, mirrors those records
// into the history store, and enforces the single-object shape of fetched
// directories.
package gateway
