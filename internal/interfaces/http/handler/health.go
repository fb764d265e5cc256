package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/bizops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// HealthCheck pings one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports process and dependency health
type HealthHandler struct {
	BaseHandler
	version   string
	instance  string
	startTime time.Time
	timeout   time.Duration
	names     []string
	checks    map[string]HealthCheck
}

// HealthOption is a functional option for HealthHandler
type HealthOption func(*HealthHandler)

// WithHealthCheck adds a named dependency check
func WithHealthCheck(name string, check HealthCheck) HealthOption {
	return func(h *HealthHandler) {
		if _, exists := h.checks[name]; !exists {
			h.names = append(h.names, name)
		}
		h.checks[name] = check
	}
}

// WithHealthTimeout bounds each check
func WithHealthTimeout(timeout time.Duration) HealthOption {
	return func(h *HealthHandler) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(version, instance string, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		version:   version,
		instance:  instance,
		startTime: time.Now(),
		timeout:   2 * time.Second,
		checks:    make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	sort.Strings(h.names)
	return h
}

// Get godoc
//
//	@Summary		Health check
//	@Description	Returns 200 when every dependency answers, 503 otherwise
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=dto.HealthResponse}
//	@Failure		503	{object}	dto.Response{data=dto.HealthResponse}
//	@Router			/health [get]
func (h *HealthHandler) Get(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Instance: h.instance,
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
	}

	if len(h.names) > 0 {
		resp.Checks = make(map[string]string, len(h.names))
	}
	for _, name := range h.names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.Response{
		Success:   status == http.StatusOK,
		Data:      resp,
		RequestID: middleware.GetRequestID(c),
	})
}
