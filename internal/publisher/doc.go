// Package publisher periodically shares a status snapshot of the node with
// the swarm. Every published CID lands in the append-only ledger so peers can
// be told out of band what to fetch.
package publisher
