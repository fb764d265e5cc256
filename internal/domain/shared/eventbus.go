package shared

import "context"

// EventHandler reacts to lifecycle events after the write that raised them
// has been stored, e.g. the audit trail or approval notifications.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes names the events to deliver; empty means all of them
	EventTypes() []string
}

// EventPublisher is what the lifecycle engine raises events through. A
// publish error never undoes the write.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber attaches handlers to a bus
type EventSubscriber interface {
	// Subscribe falls back to handler.EventTypes when eventTypes is empty
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is a publisher with a start/stop lifecycle owned by the server
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
