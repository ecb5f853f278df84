// Package swarm handles the private-network secret material: the [ipfs]
// key=value file carrying the relay multiaddress and base64 swarm key, the
// decoded swarm.key payload written into the kubo repository, and generation
// of fresh pre-shared keys.
package swarm
