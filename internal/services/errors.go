package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks a non-zero exit from the IPFS command-line tool.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration marks a missing or invalid swarm configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrDaemonStart marks a repository init, process spawn, or identity
	// probe failure during daemon bring-up.
	ErrDaemonStart = errors.New("daemon start error")
	// ErrUnavailable marks a CID that could not be resolved in the swarm.
	ErrUnavailable = errors.New("content unavailable")
	// ErrFetchShape marks a fetched directory that does not contain exactly
	// one entry.
	ErrFetchShape = errors.New("fetch shape error")
	// ErrValidation marks malformed caller input.
	ErrValidation = errors.New("validation error")
	// ErrTimeout marks a bounded wait that elapsed.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether an error should be retried on the next loop
// cycle rather than surfaced as a hard failure. Configuration and bring-up
// failures recover once the operator fixes the environment; availability
// failures recover once the advertising peer becomes reachable.
func Recoverable(err error) bool {
	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrDaemonStart), errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
