// Package commands drains the plain-text command queue. Operators (or other
// tooling) append CID lines to the queue file; each cycle the processor takes
// the file under an advisory lock, attempts every entry, and writes back only
// the lines that failed.
package commands
