package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/richcrm/automation/pkg/eventbus"
	"github.com/richcrm/automation/pkg/events"
	"github.com/stretchr/testify/mock"
)

// EventBus is a testify mock of eventbus.EventBus.
type EventBus struct {
	mock.Mock
}

func (m *EventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *EventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *EventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *EventBus) SubscribeDomain(ctx context.Context, handler eventbus.DomainEventHandler) error {
	args := m.Called(ctx, handler)

	return args.Error(0)
}

func (m *EventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *EventBus) GenerateID() string {
	return uuid.New().String()
}
