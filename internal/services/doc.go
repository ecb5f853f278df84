// Package services defines shared utilities consumed by the supervisory loop
// and the IPFS integrations.
//
// Key responsibilities:
//   - Context helpers that stamp CIDs, cycle numbers, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (retry next cycle vs hard failure) uniform across the
//     daemon.
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability, retries) stays uniform across the loop.
package services
