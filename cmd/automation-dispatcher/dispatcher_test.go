package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/richcrm/automation/pkg/automation"
	"github.com/richcrm/automation/pkg/events"
	"github.com/richcrm/automation/pkg/mocks"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/protocol"
	"github.com/richcrm/automation/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type callCounter struct {
	n atomic.Int32
}

func (c *callCounter) count() int {
	return int(c.n.Load())
}

type recordingAction struct {
	calls *callCounter
}

func (a recordingAction) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (any, error) {
	a.calls.n.Add(1)

	return map[string]any{"ok": true}, nil
}

type recordingFactory struct {
	calls *callCounter
}

func (f recordingFactory) ID() string             { return "send_notification" }
func (f recordingFactory) Name() string           { return "Recording" }
func (f recordingFactory) Description() string    { return "Records invocations" }
func (f recordingFactory) Schema() map[string]any { return map[string]any{"type": "object"} }

func (f recordingFactory) Create(_ map[string]any) (protocol.Action, error) {
	return recordingAction{calls: f.calls}, nil
}

func newTestDispatcher(t *testing.T, clock clockwork.Clock) (*Dispatcher, *mocks.Persistence, *callCounter) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	persistence := mocks.NewPersistence()
	calls := &callCounter{}

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(recordingFactory{calls: calls})

	executor := automation.NewExecutor(
		logger,
		persistence.Repo,
		automation.NewMatcher(logger, clock),
		automation.NewDispatcher(logger, reg),
		nil,
		clock,
		noop.NewTracerProvider().Tracer("test"),
	)

	return NewDispatcher("test-dispatcher", persistence, nil, executor, clock, logger), persistence, calls
}

func enquiryTrigger(id string) *models.Trigger {
	return &models.Trigger{
		ID:     id,
		Name:   "Notify on enquiry " + id,
		Type:   models.TriggerTypeEventBased,
		Status: models.TriggerStatusActive,
		EventConfig: &models.EventConfig{
			Event: events.DomainEnquiryCreated,
		},
		Actions: []models.Action{
			{Type: models.ActionSendNotification, Enabled: true},
		},
	}
}

func enquiryEvent() events.DomainEvent {
	return events.DomainEvent{
		ID:         "evt-1",
		Name:       events.DomainEnquiryCreated,
		EntityType: "enquiry",
		EntityID:   "enq-42",
		Data:       map[string]any{"priority": "high"},
		OccurredAt: time.Now(),
	}
}

func TestHandleDomainEventExecutesListeningTriggers(t *testing.T) {
	dispatcher, persistence, calls := newTestDispatcher(t, clockwork.NewRealClock())

	trigger := enquiryTrigger("trigger-1")
	persistence.Repo.On("ListByEvent", mock.Anything, events.DomainEnquiryCreated).
		Return([]*models.Trigger{trigger}, nil)
	persistence.Repo.On("GetByID", mock.Anything, "trigger-1").Return(trigger, nil)
	persistence.Repo.On("IncrementAnalytics", mock.Anything, "trigger-1", mock.Anything).Return(nil)

	err := dispatcher.HandleDomainEvent(context.Background(), enquiryEvent())
	require.NoError(t, err)

	assert.Equal(t, 1, calls.count())
	persistence.Repo.AssertExpectations(t)
}

func TestHandleDomainEventNoListeners(t *testing.T) {
	dispatcher, persistence, calls := newTestDispatcher(t, clockwork.NewRealClock())

	persistence.Repo.On("ListByEvent", mock.Anything, events.DomainEnquiryCreated).
		Return([]*models.Trigger{}, nil)

	err := dispatcher.HandleDomainEvent(context.Background(), enquiryEvent())
	require.NoError(t, err)

	assert.Zero(t, calls.count())
	persistence.Repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestHandleDomainEventListError(t *testing.T) {
	dispatcher, persistence, _ := newTestDispatcher(t, clockwork.NewRealClock())

	persistence.Repo.On("ListByEvent", mock.Anything, events.DomainEnquiryCreated).
		Return(nil, errors.New("connection lost"))

	err := dispatcher.HandleDomainEvent(context.Background(), enquiryEvent())
	require.Error(t, err)
}

func TestHandleDomainEventConditionsNotMetIsNotAnError(t *testing.T) {
	dispatcher, persistence, calls := newTestDispatcher(t, clockwork.NewRealClock())

	trigger := enquiryTrigger("trigger-1")
	trigger.EventConfig.Conditions = []models.Condition{
		{Field: "priority", Operator: models.OperatorEquals, Value: "low"},
	}
	persistence.Repo.On("ListByEvent", mock.Anything, events.DomainEnquiryCreated).
		Return([]*models.Trigger{trigger}, nil)
	persistence.Repo.On("GetByID", mock.Anything, "trigger-1").Return(trigger, nil)

	err := dispatcher.HandleDomainEvent(context.Background(), enquiryEvent())
	require.NoError(t, err)

	assert.Zero(t, calls.count())
	persistence.Repo.AssertNotCalled(t, "IncrementAnalytics", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleDomainEventHonorsConfiguredDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	dispatcher, persistence, calls := newTestDispatcher(t, clock)

	trigger := enquiryTrigger("trigger-1")
	trigger.EventConfig.DelayMinutes = 5
	persistence.Repo.On("ListByEvent", mock.Anything, events.DomainEnquiryCreated).
		Return([]*models.Trigger{trigger}, nil)
	persistence.Repo.On("GetByID", mock.Anything, "trigger-1").Return(trigger, nil)
	persistence.Repo.On("IncrementAnalytics", mock.Anything, "trigger-1", mock.Anything).Return(nil)

	require.NoError(t, dispatcher.HandleDomainEvent(context.Background(), enquiryEvent()))
	assert.Zero(t, calls.count(), "execution must wait for the configured delay")

	clock.Advance(5 * time.Minute)
	assert.Eventually(t, func() bool {
		return calls.count() == 1
	}, time.Second, 10*time.Millisecond)
}

// A delayed trigger must not hold up the event or the other listeners:
// the handler returns immediately and zero-delay triggers run right away.
func TestHandleDomainEventDelayedTriggerDoesNotBlockOthers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	dispatcher, persistence, calls := newTestDispatcher(t, clock)

	delayed := enquiryTrigger("trigger-delayed")
	delayed.EventConfig.DelayMinutes = 30
	immediate := enquiryTrigger("trigger-immediate")

	persistence.Repo.On("ListByEvent", mock.Anything, events.DomainEnquiryCreated).
		Return([]*models.Trigger{delayed, immediate}, nil)
	persistence.Repo.On("GetByID", mock.Anything, "trigger-delayed").Return(delayed, nil)
	persistence.Repo.On("GetByID", mock.Anything, "trigger-immediate").Return(immediate, nil)
	persistence.Repo.On("IncrementAnalytics", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, dispatcher.HandleDomainEvent(context.Background(), enquiryEvent()))
	assert.Equal(t, 1, calls.count(), "the zero-delay trigger runs without waiting")

	clock.Advance(30 * time.Minute)
	assert.Eventually(t, func() bool {
		return calls.count() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestDelayedExecutionSkippedAfterShutdown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	dispatcher, persistence, calls := newTestDispatcher(t, clock)

	trigger := enquiryTrigger("trigger-1")
	trigger.EventConfig.DelayMinutes = 5
	persistence.Repo.On("ListByEvent", mock.Anything, events.DomainEnquiryCreated).
		Return([]*models.Trigger{trigger}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, dispatcher.HandleDomainEvent(ctx, enquiryEvent()))

	cancel()
	clock.Advance(5 * time.Minute)

	assert.Never(t, func() bool {
		return calls.count() > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestBuildExecutionContextCarriesEntityReference(t *testing.T) {
	execCtx := buildExecutionContext(enquiryEvent())

	assert.Equal(t, events.DomainEnquiryCreated, execCtx.Event)
	assert.Equal(t, "high", execCtx.Data["priority"])
	assert.Equal(t, "enquiry", execCtx.Data["entity_type"])
	assert.Equal(t, "enq-42", execCtx.Data["entity_id"])
}
