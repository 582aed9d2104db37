package logging

import (
	"context"
	"log/slog"
)

type attemptKey struct{}

type attemptInfo struct {
	id      string
	trigger string
}

// WithAttempt records the attempt identity on ctx.
func WithAttempt(ctx context.Context, id, trigger string) context.Context {
	return context.WithValue(ctx, attemptKey{}, attemptInfo{id: id, trigger: trigger})
}

// AttemptFromContext returns the attempt id stored by WithAttempt.
func AttemptFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	info, ok := ctx.Value(attemptKey{}).(attemptInfo)
	if !ok || info.id == "" {
		return "", false
	}
	return info.id, true
}

// ContextFields extracts standardized slog attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	info, ok := ctx.Value(attemptKey{}).(attemptInfo)
	if !ok {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if info.id != "" {
		fields = append(fields, slog.String(FieldAttemptID, info.id))
	}
	if info.trigger != "" {
		fields = append(fields, slog.String(FieldTrigger, info.trigger))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from ctx.
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
