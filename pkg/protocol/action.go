// Package protocol defines the contracts between the automation engine and
// its action handlers.
package protocol

import (
	"context"
	"log/slog"

	"github.com/richcrm/automation/pkg/models"
)

// Action is one executable capability (send an email, call a webhook,
// mutate a record). Implementations return a JSON-serializable outcome or
// an error; the dispatcher records either without aborting the batch.
type Action interface {
	Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFactory builds Action instances from the free-form action_config
// bag of a trigger action. Factories are registered by action type.
type ActionFactory interface {
	ID() string
	Name() string
	Description() string

	// Schema returns the JSON schema the action_config must satisfy.
	Schema() map[string]any

	Create(config map[string]any) (Action, error)
}
