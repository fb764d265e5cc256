package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
)

// Profiling labels CPU samples taken while a request runs with its route,
// method and tenant. Requests matching a skip prefix are not labeled.
func Profiling(enabled bool, skipPrefixes ...string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		for _, prefix := range skipPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		pyroscope.TagWrapper(c.Request.Context(), pyroscope.Labels(profilingLabels(c)...), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) []string {
	labels := []string{
		"method", c.Request.Method,
		"route", routePattern(c),
	}
	if resource := resourceOf(c.FullPath()); resource != "" {
		labels = append(labels, "resource", resource)
	}
	if actor, ok := GetActor(c); ok {
		labels = append(labels, "tenant_id", actor.CompanyID)
	}
	return labels
}

// resourceOf returns the first static segment after /api/vN.
// "/api/v1/documents/:id/payments" -> "documents"
func resourceOf(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
