// Package supervisor brings the kubo daemon up inside the private swarm and
// tracks its identity. Bring-up is retried every cycle until the relay
// connection succeeds; once started the supervisor is a cheap no-op.
package supervisor
