// Package automation implements the trigger evaluation and execution
// engine: matching, action dispatch and analytics orchestration.
package automation

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/richcrm/automation/pkg/models"
)

// Matcher decides whether a trigger should fire for a runtime context.
type Matcher struct {
	logger *slog.Logger
	clock  clockwork.Clock
}

// NewMatcher creates a new trigger matcher.
func NewMatcher(logger *slog.Logger, clock clockwork.Clock) *Matcher {
	return &Matcher{
		logger: logger.With("module", "trigger_matcher"),
		clock:  clock,
	}
}

// ShouldExecute applies the status gate first, then the type-specific
// checks. It is read-only and never errors: misconfiguration keeps the
// trigger from firing instead of crashing the engine.
func (m *Matcher) ShouldExecute(trigger *models.Trigger, execCtx models.ExecutionContext) bool {
	if !trigger.IsActive() {
		m.logger.Debug("Trigger is not active, skipping",
			"trigger_id", trigger.ID,
			"status", trigger.Status)

		return false
	}

	switch trigger.Type {
	case models.TriggerTypeTimeBased:
		return m.matchTimeBased(trigger)
	case models.TriggerTypeEventBased:
		return m.matchEventBased(trigger, execCtx)
	case models.TriggerTypeConditionBased:
		return m.matchConditionBased(trigger, execCtx)
	default:
		m.logger.Warn("Unknown trigger type", "trigger_id", trigger.ID, "type", trigger.Type)

		return false
	}
}

// matchTimeBased validates the trigger's active window. Recurrence is the
// scheduler's responsibility, not the engine's.
func (m *Matcher) matchTimeBased(trigger *models.Trigger) bool {
	cfg := trigger.TimeConfig
	if cfg == nil {
		return false
	}

	now := m.clock.Now()

	if cfg.EndDate != nil && cfg.EndDate.Before(now) {
		return false
	}

	if cfg.StartDate != nil && cfg.StartDate.After(now) {
		return false
	}

	return true
}

// matchEventBased requires the event name to match and every condition to
// hold (logical AND, short-circuit on first failure).
func (m *Matcher) matchEventBased(trigger *models.Trigger, execCtx models.ExecutionContext) bool {
	cfg := trigger.EventConfig
	if cfg == nil {
		return false
	}

	if execCtx.Event != cfg.Event {
		return false
	}

	for _, condition := range cfg.Conditions {
		if !models.EvaluateCondition(execCtx.FieldValue(condition.Field), condition.Operator, condition.Value) {
			m.logger.Debug("Condition failed",
				"trigger_id", trigger.ID,
				"field", condition.Field,
				"operator", condition.Operator)

			return false
		}
	}

	return true
}

// matchConditionBased applies AND across all clauses. The per-clause
// logical operator tag is stored but not consumed until OR-chain
// evaluation is designed.
func (m *Matcher) matchConditionBased(trigger *models.Trigger, execCtx models.ExecutionContext) bool {
	cfg := trigger.ConditionConfig
	if cfg == nil {
		return false
	}

	for _, clause := range cfg.Conditions {
		if !models.EvaluateCondition(execCtx.FieldValue(clause.Field), clause.Operator, clause.Value) {
			return false
		}
	}

	return true
}

// Diagnose produces the per-condition breakdown used by dry runs of
// event-based triggers.
func (m *Matcher) Diagnose(trigger *models.Trigger, execCtx models.ExecutionContext) []models.ConditionCheck {
	if trigger.Type != models.TriggerTypeEventBased || trigger.EventConfig == nil {
		return nil
	}

	checks := make([]models.ConditionCheck, 0, len(trigger.EventConfig.Conditions))

	for _, condition := range trigger.EventConfig.Conditions {
		actual := execCtx.FieldValue(condition.Field)
		checks = append(checks, models.ConditionCheck{
			Field:       condition.Field,
			Operator:    condition.Operator,
			Value:       condition.Value,
			ActualValue: actual,
			Result:      models.EvaluateCondition(actual, condition.Operator, condition.Value),
		})
	}

	return checks
}
