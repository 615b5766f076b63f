// Package eventbus provides event-driven communication between the CRM
// core and the automation engine.
package eventbus

import (
	"context"

	"github.com/richcrm/automation/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

// DomainEventHandler receives CRM domain events from the domain topic.
type DomainEventHandler func(ctx context.Context, event events.DomainEvent) error

type EventBus interface {
	EventPublisher
	EventSubscriber

	// SubscribeDomain consumes CRM domain events and feeds them to handler.
	SubscribeDomain(ctx context.Context, handler DomainEventHandler) error

	Close() error
	GenerateID() string
}
