package middleware

import (
	"time"

	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// httpMetrics holds all HTTP-related metrics instruments
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
	openStreams     metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Buckets:     telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	responseSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size distribution in bytes",
		Unit:        "By",
		Buckets:     []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
	})
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	openStreams, err := meter.Int64UpDownCounter("bizops_open_streams",
		metric.WithDescription("Number of open tenant snapshot streams"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		responseSize:    responseSize,
		activeRequests:  activeRequests,
		openStreams:     openStreams,
	}, nil
}

// HTTPMetrics records request count, latency and response size per route.
// A nil meter disables it. Routes are gin patterns, never raw paths.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		route := routePattern(c)
		streaming := route == StreamRoute

		m.activeRequests.Add(ctx, 1)
		if streaming {
			m.openStreams.Add(ctx, 1)
		}

		c.Next()

		m.activeRequests.Add(ctx, -1)
		if streaming {
			m.openStreams.Add(ctx, -1)
		}

		base := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		requestAttrs := append([]attribute.KeyValue{
			telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()),
		}, base...)
		if actor, ok := GetActor(c); ok {
			requestAttrs = append(requestAttrs, telemetry.AttrTenantID.String(actor.CompanyID))
		}
		m.requestTotal.Inc(ctx, requestAttrs...)

		// Stream lifetimes would swamp the latency histogram
		if !streaming {
			m.requestDuration.RecordDuration(ctx, time.Since(start), base...)
		}
		if size := c.Writer.Size(); size > 0 {
			m.responseSize.Record(ctx, float64(size), base...)
		}
	}, nil
}

// StreamRoute is the gin pattern of the snapshot stream
const StreamRoute = "/api/v1/stream"

func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
