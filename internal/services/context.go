package services

import "context"

type contextKey string

const (
	cidKey       contextKey = "cid"
	cycleKey     contextKey = "cycle"
	requestIDKey contextKey = "request_id"
)

// WithCID annotates context with the content identifier being processed.
func WithCID(ctx context.Context, cid string) context.Context {
	if cid == "" {
		return ctx
	}
	return context.WithValue(ctx, cidKey, cid)
}

// CIDFromContext extracts the content identifier if present.
func CIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(cidKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCycle annotates context with the supervisory loop cycle number.
func WithCycle(ctx context.Context, cycle uint64) context.Context {
	return context.WithValue(ctx, cycleKey, cycle)
}

// CycleFromContext extracts the loop cycle number if present.
func CycleFromContext(ctx context.Context) (uint64, bool) {
	switch v := ctx.Value(cycleKey).(type) {
	case uint64:
		return v, true
	case int:
		if v >= 0 {
			return uint64(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
