package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bizops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish after Stop
var ErrBusStopped = errors.New("event bus stopped")

// InMemoryEventBus implements EventBus with in-process, synchronous delivery.
// Handlers run on the publisher's goroutine in registration order.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	stopped  atomic.Bool

	published atomic.Int64
	failed    atomic.Int64
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("event_bus"),
	}
}

// Publish delivers events to every matching handler. A failing handler does
// not stop delivery to the others; all failures are returned joined.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}

	var errs []error
	for _, event := range events {
		b.published.Add(1)
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.failed.Add(1)
				b.logger.Error("Event handler failed",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("tenant_id", event.TenantID()),
					zap.String("handler", fmt.Sprintf("%T", handler)),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("%s: %w", event.EventType(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler. With no explicit types the handler's own
// EventTypes are used; an empty set subscribes to everything.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed",
		zap.String("handler", fmt.Sprintf("%T", handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start (re)opens the bus for publishing
func (b *InMemoryEventBus) Start(_ context.Context) error {
	b.stopped.Store(false)
	b.logger.Info("Event bus started", zap.Int("handlers", len(b.registry.GetAllHandlers())))
	return nil
}

// Stop rejects further publishes. Delivery is synchronous, so nothing is in
// flight once the publishers have returned.
func (b *InMemoryEventBus) Stop(_ context.Context) error {
	b.stopped.Store(true)
	b.logger.Info("Event bus stopped",
		zap.Int64("published", b.published.Load()),
		zap.Int64("failed", b.failed.Load()),
	)
	return nil
}

// Stats returns the number of published events and failed deliveries
func (b *InMemoryEventBus) Stats() (published, failed int64) {
	return b.published.Load(), b.failed.Load()
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
