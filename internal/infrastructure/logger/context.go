package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	tenantIDKey  contextKey = "tenant_id"
	userIDKey    contextKey = "user_id"
)

// WithContext returns a new context carrying logger
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the context's logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID records the request id and tags the context logger with it
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withField(ctx, requestIDKey, requestID)
}

// WithTenantID records the company id and tags the context logger with it
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return withField(ctx, tenantIDKey, tenantID)
}

// WithUserID records the acting user and tags the context logger with it
func WithUserID(ctx context.Context, userID string) context.Context {
	return withField(ctx, userIDKey, userID)
}

func withField(ctx context.Context, key contextKey, value string) context.Context {
	ctx = context.WithValue(ctx, key, value)
	return WithContext(ctx, FromContext(ctx).With(zap.String(string(key), value)))
}

// GetRequestID returns the request id stored by WithRequestID
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// GetTenantID returns the company id stored by WithTenantID
func GetTenantID(ctx context.Context) string {
	return stringValue(ctx, tenantIDKey)
}

// GetUserID returns the user id stored by WithUserID
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// L returns the context logger with trace_id and span_id attached when the
// context carries a recording span.
//
//	logger.L(ctx).Info("Feed subscribed", zap.String("collection", c))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
