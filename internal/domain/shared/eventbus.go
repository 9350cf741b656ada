package shared

import "context"

// EventHandler reacts to domain events after the producing transaction has
// committed. Handlers must tolerate redelivery of the same event id.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types to deliver; empty means every event
	EventTypes() []string
}

// EventPublisher is what application services publish through. Order
// workflows call it only once their transaction has committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is a publisher that handlers can subscribe to and that has a
// lifecycle tied to the process
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
