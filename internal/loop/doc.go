// Package loop runs the fixed-cadence supervisory cycle: bring the daemon
// up, drain the command queue, publish a status snapshot when due. Shutdown
// is cooperative; a cycle that has started always runs to completion.
package loop
