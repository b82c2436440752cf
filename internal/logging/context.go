package logging

import (
	"context"
	"log/slog"

	"creatorsync/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized key for run identifiers.
	FieldRunID = "run_id"
	// FieldRunType is the standardized key for run types (order_sync, enrichment).
	FieldRunType = "run_type"
	// FieldCreatorID is the standardized key for creator identifiers.
	FieldCreatorID = "creator_id"
	// FieldHandle is the standardized key for creator handles.
	FieldHandle = "handle"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (e.g. "match_ambiguous").
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if runType, ok := services.RunTypeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunType, runType))
	}
	if id, ok := services.CreatorIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldCreatorID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
