package middleware

import (
	"net/http"

	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName    string
	Enabled        bool
	TracerProvider trace.TracerProvider // nil uses the global provider
}

// Tracing wraps otelgin. The server span is named "METHOD route".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanAttributes tags the server span with the request id and, when JWTAuth
// has run before it, the acting tenant and user
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpan(c, span)
		}
		c.Next()
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if requestID := GetRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if actor, ok := GetActor(c); ok {
		span.SetAttributes(
			attribute.String(telemetry.SpanAttrTenantID, actor.CompanyID),
			attribute.String(telemetry.SpanAttrActorID, actor.UserID),
			attribute.String(telemetry.SpanAttrActorRole, actor.Role.String()),
		)
	}
}

// SpanErrorMarker marks the server span as failed for 5xx responses and
// records the status of every 4xx. Place it after Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
