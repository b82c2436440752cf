package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	runTypeKey   contextKey = "run_type"
	creatorIDKey contextKey = "creator_id"
	requestIDKey contextKey = "request_id"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunType annotates context with the run type (order_sync, enrichment).
func WithRunType(ctx context.Context, runType string) context.Context {
	if runType == "" {
		return ctx
	}
	return context.WithValue(ctx, runTypeKey, runType)
}

// RunTypeFromContext returns the run type if present.
func RunTypeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runTypeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCreatorID annotates context with the creator being processed.
func WithCreatorID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, creatorIDKey, id)
}

// CreatorIDFromContext extracts the creator identifier if present.
func CreatorIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(creatorIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
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
