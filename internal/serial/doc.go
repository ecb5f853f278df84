// Package serial provides the snapshot serializers. Status snapshots are
// published as YAML by default; JSON exists for consumers that prefer it.
package serial
