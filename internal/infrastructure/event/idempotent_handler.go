package event

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultDedupTTL is how long a handled event id is remembered
const DefaultDedupTTL = 24 * time.Hour

// IdempotencyStats is a snapshot of idempotency metrics
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotencyMetrics tracks idempotency-related statistics
type IdempotencyMetrics struct {
	EventsProcessed atomic.Int64
	EventsDuplicate atomic.Int64
	EventsFailed    atomic.Int64
}

// Stats returns a snapshot of the current metrics
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

// IdempotentHandler wraps an EventHandler so each event id is handled at most
// once per TTL. The audit writer relies on it: a replayed DocumentCreated must
// not append a second audit entry.
type IdempotentHandler struct {
	handler shared.EventHandler
	name    string
	claims  shared.ClaimStore
	ttl     time.Duration
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

// IdempotentHandlerOption is a functional option for IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithDedupTTL sets how long a handled event id blocks redelivery
func WithDedupTTL(ttl time.Duration) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

// WithHandlerName sets the name that scopes dedup keys. Defaults to the
// wrapped handler's type.
func WithHandlerName(name string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if name != "" {
			h.name = name
		}
	}
}

// WithIdempotencyMetrics shares a metrics collector between handlers
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if metrics != nil {
			h.metrics = metrics
		}
	}
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(handler shared.EventHandler, claims shared.ClaimStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		name:    fmt.Sprintf("%T", handler),
		claims:  claims,
		ttl:     DefaultDedupTTL,
		logger:  logger,
		metrics: &IdempotencyMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the event types of the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// dedupKey is scoped by handler so two wrapped handlers sharing a claim store
// each see every event once
func (h *IdempotentHandler) dedupKey(event shared.DomainEvent) string {
	return "event:" + h.name + ":" + event.EventID().String()
}

// Handle claims the event id and runs the wrapped handler. A claim store
// failure processes the event anyway; a handler failure releases the claim so
// a redelivery can retry.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := h.dedupKey(event)
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("tenant_id", event.TenantID()),
	}

	fresh, err := h.claims.Claim(ctx, key, h.ttl)
	switch {
	case err != nil:
		h.logger.Warn("Failed to check event idempotency, processing anyway", append(fields, zap.Error(err))...)
	case !fresh:
		h.metrics.EventsDuplicate.Add(1)
		h.logger.Debug("Duplicate event skipped", fields...)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.metrics.EventsFailed.Add(1)
		if relErr := h.claims.Release(context.WithoutCancel(ctx), key); relErr != nil {
			h.logger.Warn("Failed to release event claim", append(fields, zap.Error(relErr))...)
		}
		return err
	}

	h.metrics.EventsProcessed.Add(1)
	return nil
}

// Metrics returns the metrics for this handler
func (h *IdempotentHandler) Metrics() *IdempotencyMetrics {
	return h.metrics
}

// Unwrap returns the wrapped handler
func (h *IdempotentHandler) Unwrap() shared.EventHandler {
	return h.handler
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)

// WrapHandlersWithIdempotency wraps every handler with the same claim store
// and options
func WrapHandlersWithIdempotency(handlers []shared.EventHandler, claims shared.ClaimStore, logger *zap.Logger, opts ...IdempotentHandlerOption) []shared.EventHandler {
	wrapped := make([]shared.EventHandler, len(handlers))
	for i, h := range handlers {
		wrapped[i] = NewIdempotentHandler(h, claims, logger, opts...)
	}
	return wrapped
}
