package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/richcrm/automation/pkg/automation"
	"github.com/richcrm/automation/pkg/eventbus"
	"github.com/richcrm/automation/pkg/events"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/persistence"
)

// Dispatcher consumes CRM domain events and executes every active
// event-based trigger listening for them.
type Dispatcher struct {
	id          string
	eventBus    eventbus.EventBus
	persistence persistence.Persistence
	executor    *automation.Executor
	clock       clockwork.Clock
	logger      *slog.Logger
}

func NewDispatcher(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	executor *automation.Executor,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		id:          id,
		eventBus:    eventBus,
		persistence: persistence,
		executor:    executor,
		clock:       clock,
		logger:      logger.With("module", "dispatcher", "dispatcher_id", id),
	}
}

// Start subscribes to the domain topic and blocks until the context is
// cancelled or a termination signal arrives.
func (d *Dispatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.handleSignals(cancel)

	d.logger.Info("Starting dispatcher")

	err := d.eventBus.SubscribeDomain(ctx, d.HandleDomainEvent)
	if err != nil {
		return err
	}

	d.logger.Info("Subscribed to domain events - waiting for events...")

	<-ctx.Done()
	d.logger.Info("Dispatcher context cancelled, stopping...")

	return nil
}

func (d *Dispatcher) handleSignals(cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		d.logger.Info("Received signal, shutting down gracefully...", "signal", sig)
		cancel()
	}()
}

// HandleDomainEvent fans one domain event out to every trigger listening
// for it. Trigger failures are isolated: one broken trigger never blocks
// the rest, and the event is always acked.
func (d *Dispatcher) HandleDomainEvent(ctx context.Context, event events.DomainEvent) error {
	logger := d.logger.With(
		"event_id", event.ID,
		"event", event.Name,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
	)

	logger.Info("Processing domain event")

	triggers, err := d.persistence.TriggerRepository().ListByEvent(ctx, event.Name)
	if err != nil {
		logger.Error("Failed to list triggers for event", "error", err)

		return err
	}

	if len(triggers) == 0 {
		logger.Debug("No triggers listening for event")

		return nil
	}

	logger.Info("Found listening triggers", "count", len(triggers))

	execCtx := buildExecutionContext(event)

	for _, trigger := range triggers {
		d.executeTrigger(ctx, trigger, execCtx, logger)
	}

	return nil
}

func (d *Dispatcher) executeTrigger(ctx context.Context, trigger *models.Trigger, execCtx models.ExecutionContext, logger *slog.Logger) {
	logger = logger.With("trigger_id", trigger.ID, "trigger_name", trigger.Name)

	if delay := triggerDelay(trigger); delay > 0 {
		logger.Info("Scheduling delayed trigger execution", "delay", delay)

		// Off the consumer hot path: the event is acked immediately and
		// other listeners are never blocked behind one delayed trigger.
		d.clock.AfterFunc(delay, func() {
			if ctx.Err() != nil {
				return
			}

			d.runTrigger(ctx, trigger, execCtx, logger)
		})

		return
	}

	d.runTrigger(ctx, trigger, execCtx, logger)
}

func (d *Dispatcher) runTrigger(ctx context.Context, trigger *models.Trigger, execCtx models.ExecutionContext, logger *slog.Logger) {
	report, err := d.executor.Execute(ctx, trigger.ID, execCtx)

	switch {
	case errors.Is(err, automation.ErrConditionsNotMet):
		logger.Info("Trigger conditions not met, skipping")
	case err != nil:
		logger.Error("Trigger execution failed", "error", err)
	default:
		logger.Info("Trigger execution completed",
			"actions", len(report.Results),
			"duration_ms", report.DurationMs)
	}
}

// buildExecutionContext maps the event payload into the context conditions
// and templates read. The entity reference travels inside Data so record
// actions can address the affected record.
func buildExecutionContext(event events.DomainEvent) models.ExecutionContext {
	data := make(map[string]any, len(event.Data)+2)
	for k, v := range event.Data {
		data[k] = v
	}

	data["entity_type"] = event.EntityType
	data["entity_id"] = event.EntityID

	return models.ExecutionContext{
		Event: event.Name,
		Data:  data,
	}
}

func triggerDelay(trigger *models.Trigger) time.Duration {
	if trigger.EventConfig == nil {
		return 0
	}

	return time.Duration(trigger.EventConfig.DelayMinutes) * time.Minute
}
