// Package logging wires log/slog for the anchorage daemon and CLI.
//
// Two output formats are supported: a console handler that renders
// "TIMESTAMP LEVEL component: message k=v ..." lines for interactive use, and
// a JSON handler for machine consumption. Construction goes through Options
// (or NewFromConfig for the common case) so every binary logs the same way.
package logging
