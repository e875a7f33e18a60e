package logger

import "context"

type contextKey string

const (
	TraceIDKey contextKey = "trace_id"
	RunIDKey   contextKey = "run_id"
)

// WithTraceID tags ctx with the id of the inbound request.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRunID tags ctx with the id of a single agent run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}

func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// Attrs returns the request/run identifiers carried by ctx as slog key/value pairs.
func Attrs(ctx context.Context) []any {
	attrs := make([]any, 0, 4)
	if id := GetTraceID(ctx); id != "" {
		attrs = append(attrs, "trace_id", id)
	}
	if id := GetRunID(ctx); id != "" {
		attrs = append(attrs, "run_id", id)
	}
	return attrs
}
