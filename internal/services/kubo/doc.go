// Package kubo wraps the kubo (go-ipfs) command line interface. Every
// operation shells out to the configured binary with IPFS_PATH pointed at the
// node repository; nothing in this package talks to the HTTP API.
package kubo
