package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/richcrm/automation/pkg/eventbus"
	"github.com/richcrm/automation/pkg/events"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/otelhelper"
	"github.com/richcrm/automation/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrConditionsNotMet is returned by Execute when the trigger's status or
// conditions block the run.
var ErrConditionsNotMet = errors.New("trigger conditions not met")

// ExecutionReport summarizes one orchestrated trigger run.
type ExecutionReport struct {
	TriggerID   string                `json:"trigger_id"`
	TriggerName string                `json:"trigger_name"`
	ExecutedAt  time.Time             `json:"executed_at"`
	DurationMs  int64                 `json:"duration_ms"`
	Results     []models.ActionResult `json:"results"`
}

// TestReport is the outcome of a dry run. Actions are never dispatched and
// analytics are never touched.
type TestReport struct {
	TriggerID    string                  `json:"trigger_id"`
	TriggerName  string                  `json:"trigger_name"`
	WouldExecute bool                    `json:"would_execute"`
	Checks       []models.ConditionCheck `json:"checks,omitempty"`
}

// Executor orchestrates a full trigger run: load, match, dispatch,
// analytics update.
type Executor struct {
	logger     *slog.Logger
	repository persistence.TriggerRepository
	matcher    *Matcher
	dispatcher *Dispatcher
	eventBus   eventbus.EventBus
	clock      clockwork.Clock
	tracer     trace.Tracer
}

// NewExecutor creates the orchestrator. The event bus is optional; a nil
// bus disables lifecycle event publishing.
func NewExecutor(
	logger *slog.Logger,
	repository persistence.TriggerRepository,
	matcher *Matcher,
	dispatcher *Dispatcher,
	bus eventbus.EventBus,
	clock clockwork.Clock,
	tracer trace.Tracer,
) *Executor {
	return &Executor{
		logger:     logger.With("module", "executor"),
		repository: repository,
		matcher:    matcher,
		dispatcher: dispatcher,
		eventBus:   bus,
		clock:      clock,
		tracer:     tracer,
	}
}

// Execute loads the trigger, checks whether it should fire and runs its
// actions. The aggregate outcome is folded into the trigger's analytics
// through a single atomic repository update. Action side effects are not
// rolled back when that write fails.
func (e *Executor) Execute(ctx context.Context, triggerID string, execCtx models.ExecutionContext) (*ExecutionReport, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "executor.execute",
		attribute.String(otelhelper.TriggerIDKey, triggerID),
		attribute.String(otelhelper.EventNameKey, execCtx.Event),
	)
	defer span.End()

	trigger, err := e.loadTrigger(ctx, triggerID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.TriggerNameKey, trigger.Name),
		attribute.String(otelhelper.TriggerTypeKey, string(trigger.Type)),
	)

	if !e.matcher.ShouldExecute(trigger, execCtx) {
		e.logger.Info("Trigger did not match",
			"trigger_id", trigger.ID,
			"event", execCtx.Event)

		return nil, ErrConditionsNotMet
	}

	executedAt := e.clock.Now().UTC()
	started := time.Now()

	results := e.dispatcher.RunActions(ctx, trigger, execCtx)

	duration := time.Since(started)
	snapshot := models.NewAnalyticsSnapshot(results, executedAt, duration)

	err = e.repository.IncrementAnalytics(ctx, trigger.ID, snapshot)
	if err != nil {
		// The actions already ran; losing the metric write must not fail
		// the execution.
		otelhelper.SetError(span, err)
		e.logger.Error("Failed to update trigger analytics",
			"trigger_id", trigger.ID,
			"error", err)
	}

	e.publishExecuted(ctx, trigger, execCtx, snapshot)

	e.logger.Info("Trigger executed",
		"trigger_id", trigger.ID,
		"trigger_name", trigger.Name,
		"succeeded", snapshot.Succeeded,
		"failed", snapshot.Failed,
		"duration_ms", snapshot.DurationMs)

	return &ExecutionReport{
		TriggerID:   trigger.ID,
		TriggerName: trigger.Name,
		ExecutedAt:  executedAt,
		DurationMs:  snapshot.DurationMs,
		Results:     results,
	}, nil
}

// Test performs a dry run: the matcher verdict plus per-condition
// diagnostics for event-based triggers. Nothing is dispatched or persisted.
func (e *Executor) Test(ctx context.Context, triggerID string, execCtx models.ExecutionContext) (*TestReport, error) {
	trigger, err := e.loadTrigger(ctx, triggerID)
	if err != nil {
		return nil, err
	}

	return &TestReport{
		TriggerID:    trigger.ID,
		TriggerName:  trigger.Name,
		WouldExecute: e.matcher.ShouldExecute(trigger, execCtx),
		Checks:       e.matcher.Diagnose(trigger, execCtx),
	}, nil
}

func (e *Executor) loadTrigger(ctx context.Context, triggerID string) (*models.Trigger, error) {
	trigger, err := e.repository.GetByID(ctx, triggerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trigger: %w", err)
	}

	if trigger == nil {
		return nil, persistence.NewTriggerError("execute", triggerID, persistence.ErrTriggerNotFound)
	}

	return trigger, nil
}

func (e *Executor) publishExecuted(ctx context.Context, trigger *models.Trigger, execCtx models.ExecutionContext, snapshot models.AnalyticsSnapshot) {
	if e.eventBus == nil {
		return
	}

	event := events.TriggerExecuted{
		BaseEvent: events.BaseEvent{
			ID:        e.eventBus.GenerateID(),
			Type:      events.TriggerExecutedEventType,
			Timestamp: snapshot.LastExecutedAt,
		},
		TriggerID:   trigger.ID,
		TriggerName: trigger.Name,
		Event:       execCtx.Event,
		Succeeded:   int(snapshot.Succeeded),
		Failed:      int(snapshot.Failed),
		DurationMs:  snapshot.DurationMs,
	}

	err := e.eventBus.Publish(ctx, trigger.ID, event)
	if err != nil {
		e.logger.Error("Failed to publish trigger executed event",
			"trigger_id", trigger.ID,
			"error", err)
	}
}
