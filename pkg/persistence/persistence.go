// Package persistence provides the storage abstraction for automation
// triggers and their analytics counters.
package persistence

import (
	"context"

	"github.com/richcrm/automation/pkg/models"
)

type Persistence interface {
	TriggerRepository() TriggerRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListTriggersOptions filters and pages a trigger listing.
type ListTriggersOptions struct {
	Limit  int
	Offset int

	Type   *models.TriggerType
	Status *models.TriggerStatus

	SortBy    string // created_at, updated_at, name
	SortOrder string // asc, desc
}

// ListTriggersResult is a page of triggers plus paging metadata.
type ListTriggersResult struct {
	Triggers    []*models.Trigger
	TotalCount  int64
	HasNextPage bool
}

type TriggerRepository interface {
	ListTriggers(ctx context.Context, opts ListTriggersOptions) (*ListTriggersResult, error)

	// GetByID returns (nil, nil) when no trigger matches.
	GetByID(ctx context.Context, id string) (*models.Trigger, error)

	// GetByName returns (nil, nil) when no trigger matches. Trigger names
	// are unique.
	GetByName(ctx context.Context, name string) (*models.Trigger, error)

	// ListByEvent returns the active event-based triggers listening for the
	// given domain event.
	ListByEvent(ctx context.Context, event string) ([]*models.Trigger, error)

	// ListActiveByType returns all active triggers of one type; used by the
	// scheduler to scan time- and condition-based triggers.
	ListActiveByType(ctx context.Context, triggerType models.TriggerType) ([]*models.Trigger, error)

	Save(ctx context.Context, trigger *models.Trigger) error

	// Delete removes the trigger permanently.
	Delete(ctx context.Context, id string) error

	// IncrementAnalytics merges one execution's snapshot into the stored
	// counters atomically, so concurrent executions of the same trigger
	// never lose increments to a read-modify-write race.
	IncrementAnalytics(ctx context.Context, id string, snap models.AnalyticsSnapshot) error
}
