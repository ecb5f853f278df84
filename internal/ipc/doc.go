// Package ipc exposes agent control over a Unix domain socket using JSON-RPC.
//
// The CLI talks to a running agent exclusively through this surface: status
// queries, queue appends, transfer history, pin listings, shutdown, and
// notification tests.
package ipc
