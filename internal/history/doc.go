// Package history persists a durable record of transfers and published
// status snapshots in SQLite. The supervisory loop works from in-memory
// state; history exists so operators can inspect what a node has shared and
// fetched across restarts.
package history
