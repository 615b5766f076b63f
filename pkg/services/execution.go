package services

import (
	"context"

	"github.com/richcrm/automation/pkg/automation"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/persistence"
)

// Execution is the service wrapping the engine for the HTTP layer: manual
// execution, dry runs and analytics reads.
type Execution struct {
	executor    *automation.Executor
	persistence persistence.Persistence
}

// NewExecution creates a new execution service.
func NewExecution(executor *automation.Executor, persistence persistence.Persistence) *Execution {
	return &Execution{
		executor:    executor,
		persistence: persistence,
	}
}

// Execute runs a trigger against the given context.
func (e *Execution) Execute(ctx context.Context, triggerID string, execCtx models.ExecutionContext) (*automation.ExecutionReport, error) {
	return e.executor.Execute(ctx, triggerID, execCtx)
}

// Test dry-runs a trigger against the given context.
func (e *Execution) Test(ctx context.Context, triggerID string, execCtx models.ExecutionContext) (*automation.TestReport, error) {
	return e.executor.Test(ctx, triggerID, execCtx)
}

// Analytics returns the cumulative execution counters of a trigger.
func (e *Execution) Analytics(ctx context.Context, triggerID string) (*models.Analytics, error) {
	trigger, err := e.persistence.TriggerRepository().GetByID(ctx, triggerID)
	if err != nil {
		return nil, err
	}

	if trigger == nil {
		return nil, ErrTriggerNotFound
	}

	analytics := trigger.Analytics

	return &analytics, nil
}
