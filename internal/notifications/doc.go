// Package notifications delivers node lifecycle events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set, so callers never
// guard their notification calls.
package notifications
