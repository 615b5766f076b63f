package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/otelhelper"
	"github.com/richcrm/automation/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dispatcher runs a trigger's actions in declared order through the
// action registry.
type Dispatcher struct {
	logger   *slog.Logger
	registry *registry.Registry
}

// NewDispatcher creates a new action dispatcher.
func NewDispatcher(logger *slog.Logger, reg *registry.Registry) *Dispatcher {
	return &Dispatcher{
		logger:   logger.With("module", "action_dispatcher"),
		registry: reg,
	}
}

// RunActions executes the trigger's enabled actions sorted by their Order
// field. A failing action is recorded and execution continues, unless the
// trigger's execution policy sets StopOnError. The returned slice holds
// one result per attempted action, in execution order.
func (d *Dispatcher) RunActions(ctx context.Context, trigger *models.Trigger, execCtx models.ExecutionContext) []models.ActionResult {
	actions := make([]models.Action, len(trigger.Actions))
	copy(actions, trigger.Actions)

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Order < actions[j].Order
	})

	results := make([]models.ActionResult, 0, len(actions))

	for _, action := range actions {
		if !action.Enabled {
			d.logger.Debug("Skipping disabled action",
				"trigger_id", trigger.ID,
				"action_type", action.Type)

			continue
		}

		result := d.runAction(ctx, trigger, action, execCtx)
		results = append(results, result)

		if !result.Success && trigger.Execution.StopOnError {
			d.logger.Warn("Stopping action chain on error",
				"trigger_id", trigger.ID,
				"action_type", action.Type,
				"error", result.Error)

			break
		}
	}

	return results
}

func (d *Dispatcher) runAction(ctx context.Context, trigger *models.Trigger, action models.Action, execCtx models.ExecutionContext) models.ActionResult {
	tracer := trace.SpanFromContext(ctx).TracerProvider().Tracer("automation")
	ctx, span := otelhelper.StartSpan(ctx, tracer, "dispatcher.run_action",
		attribute.String(otelhelper.TriggerIDKey, trigger.ID),
		attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
	)
	defer span.End()

	started := time.Now()

	output, err := d.execute(ctx, action, execCtx)

	result := models.ActionResult{
		ActionType: action.Type,
		Success:    err == nil,
		Result:     output,
		DurationMs: time.Since(started).Milliseconds(),
	}

	if err != nil {
		result.Error = err.Error()
		otelhelper.SetError(span, err)

		d.logger.Error("Action execution failed",
			"trigger_id", trigger.ID,
			"action_type", action.Type,
			"error", err)
	} else {
		d.logger.Info("Action executed",
			"trigger_id", trigger.ID,
			"action_type", action.Type,
			"duration_ms", result.DurationMs)
	}

	return result
}

func (d *Dispatcher) execute(ctx context.Context, action models.Action, execCtx models.ExecutionContext) (any, error) {
	impl, err := d.registry.CreateAction(string(action.Type), action.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create action %q: %w", action.Type, err)
	}

	return impl.Execute(ctx, execCtx, d.logger.With("action_type", action.Type))
}
