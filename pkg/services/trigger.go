package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/richcrm/automation/pkg/eventbus"
	"github.com/richcrm/automation/pkg/events"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/persistence"
	"github.com/richcrm/automation/pkg/registry"
	"github.com/robfig/cron/v3"
)

// ErrTriggerNotFound is returned when a trigger is not found.
var ErrTriggerNotFound = persistence.ErrTriggerNotFound

// Trigger is the service handling trigger lifecycle: CRUD, activation and
// validation.
type Trigger struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
	cronParser  cron.Parser
}

// NewTrigger creates a new trigger service. The event bus is optional; a
// nil bus disables lifecycle event publishing.
func NewTrigger(persistence persistence.Persistence, reg *registry.Registry, bus eventbus.EventBus) *Trigger {
	return &Trigger{
		logger:      slog.With("module", "trigger_service"),
		persistence: persistence,
		registry:    reg,
		eventBus:    bus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		cronParser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// HealthCheck checks the health of the persistence layer.
func (t *Trigger) HealthCheck(ctx context.Context) (string, bool) {
	if t.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := t.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListTriggersRequest contains options for listing triggers.
type ListTriggersRequest struct {
	Limit  int `validate:"min=0,max=100"`
	Offset int `validate:"min=0"`

	Type   *models.TriggerType
	Status *models.TriggerStatus

	SortBy    string
	SortOrder string
}

// ListTriggersResponse contains the result of listing triggers.
type ListTriggersResponse struct {
	Triggers    []*models.Trigger `json:"triggers"`
	TotalCount  int64             `json:"total_count"`
	HasNextPage bool              `json:"has_next_page"`
}

// ListTriggers retrieves triggers with filtering, sorting, and pagination.
func (t *Trigger) ListTriggers(ctx context.Context, req ListTriggersRequest) (*ListTriggersResponse, error) {
	err := t.validateListTriggersRequest(&req)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	opts := persistence.ListTriggersOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		Type:      req.Type,
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	result, err := t.persistence.TriggerRepository().ListTriggers(ctx, opts)
	if err != nil {
		if errors.Is(err, persistence.ErrInvalidSortField) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}

	return &ListTriggersResponse{
		Triggers:    result.Triggers,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

func (t *Trigger) validateListTriggersRequest(req *ListTriggersRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "name"}
	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"validateListTriggersRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"validateListTriggersRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	if req.Status != nil {
		allowedStatuses := []models.TriggerStatus{
			models.TriggerStatusActive,
			models.TriggerStatusInactive,
			models.TriggerStatusDraft,
		}

		if !slices.Contains(allowedStatuses, *req.Status) {
			return NewValidationError(
				"validateListTriggersRequest",
				"INVALID_STATUS",
				fmt.Sprintf("invalid status '%s'", *req.Status),
				ErrInvalidStatus,
			)
		}
	}

	return nil
}

// FetchByID retrieves a trigger by its ID.
func (t *Trigger) FetchByID(ctx context.Context, id string) (*models.Trigger, error) {
	trigger, err := t.persistence.TriggerRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if trigger == nil {
		return nil, ErrTriggerNotFound
	}

	return trigger, nil
}

// Create adds a new trigger to the repository.
func (t *Trigger) Create(ctx context.Context, trigger *models.Trigger) (*models.Trigger, error) {
	if trigger == nil {
		return nil, ErrTriggerNil
	}

	now := time.Now().UTC()
	trigger.ID = uuid.New().String()
	trigger.CreatedAt = now
	trigger.UpdatedAt = now
	trigger.Analytics = models.Analytics{}

	if trigger.Status == "" {
		trigger.Status = models.TriggerStatusDraft
	}

	err := t.validateTrigger(trigger)
	if err != nil {
		return nil, err
	}

	existing, err := t.persistence.TriggerRepository().GetByName(ctx, trigger.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check trigger name: %w", err)
	}

	if existing != nil {
		return nil, ErrTriggerNameTaken
	}

	err = t.persistence.TriggerRepository().Save(ctx, trigger)
	if err != nil {
		if persistence.IsTriggerAlreadyExists(err) {
			return nil, ErrTriggerNameTaken
		}

		return nil, fmt.Errorf("failed to create trigger: %w", err)
	}

	t.publish(ctx, trigger.ID, events.TriggerCreated{
		BaseEvent:   t.baseEvent(events.TriggerCreatedEventType),
		TriggerID:   trigger.ID,
		TriggerName: trigger.Name,
	})

	return trigger, nil
}

// Update modifies an existing trigger by its ID. Analytics counters are
// owned by the execution path and preserved from the stored trigger.
func (t *Trigger) Update(ctx context.Context, triggerID string, trigger *models.Trigger) (*models.Trigger, error) {
	if trigger == nil {
		return nil, ErrTriggerNil
	}

	existing, err := t.persistence.TriggerRepository().GetByID(ctx, triggerID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrTriggerNotFound
	}

	trigger.ID = triggerID
	trigger.CreatedAt = existing.CreatedAt
	trigger.UpdatedAt = time.Now().UTC()
	trigger.Analytics = existing.Analytics

	if trigger.Status == "" {
		trigger.Status = existing.Status
	}

	err = t.validateTrigger(trigger)
	if err != nil {
		return nil, err
	}

	if trigger.Name != existing.Name {
		sameName, err := t.persistence.TriggerRepository().GetByName(ctx, trigger.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check trigger name: %w", err)
		}

		if sameName != nil && sameName.ID != triggerID {
			return nil, ErrTriggerNameTaken
		}
	}

	err = t.persistence.TriggerRepository().Save(ctx, trigger)
	if err != nil {
		if persistence.IsTriggerAlreadyExists(err) {
			return nil, ErrTriggerNameTaken
		}

		return nil, fmt.Errorf("failed to update trigger: %w", err)
	}

	t.publish(ctx, trigger.ID, events.TriggerUpdated{
		BaseEvent: t.baseEvent(events.TriggerUpdatedEventType),
		TriggerID: trigger.ID,
	})

	return trigger, nil
}

// Delete removes a trigger by its ID.
func (t *Trigger) Delete(ctx context.Context, triggerID string) error {
	existing, err := t.persistence.TriggerRepository().GetByID(ctx, triggerID)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrTriggerNotFound
	}

	err = t.persistence.TriggerRepository().Delete(ctx, triggerID)
	if err != nil {
		return fmt.Errorf("failed to delete trigger: %w", err)
	}

	t.publish(ctx, triggerID, events.TriggerDeleted{
		BaseEvent: t.baseEvent(events.TriggerDeletedEventType),
		TriggerID: triggerID,
	})

	return nil
}

// Activate moves a trigger to active status.
func (t *Trigger) Activate(ctx context.Context, triggerID string) (*models.Trigger, error) {
	return t.setStatus(ctx, triggerID, models.TriggerStatusActive)
}

// Deactivate moves a trigger to inactive status.
func (t *Trigger) Deactivate(ctx context.Context, triggerID string) (*models.Trigger, error) {
	return t.setStatus(ctx, triggerID, models.TriggerStatusInactive)
}

func (t *Trigger) setStatus(ctx context.Context, triggerID string, status models.TriggerStatus) (*models.Trigger, error) {
	trigger, err := t.FetchByID(ctx, triggerID)
	if err != nil {
		return nil, err
	}

	if trigger.Status == status {
		return trigger, nil
	}

	trigger.Status = status
	trigger.UpdatedAt = time.Now().UTC()

	err = t.persistence.TriggerRepository().Save(ctx, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to save trigger status: %w", err)
	}

	t.publish(ctx, trigger.ID, events.TriggerUpdated{
		BaseEvent: t.baseEvent(events.TriggerUpdatedEventType),
		TriggerID: trigger.ID,
	})

	return trigger, nil
}

// validateTrigger applies struct tags plus the cross-field rules the tags
// cannot express: type/config pairing, event names, cron expressions and
// action config schemas.
func (t *Trigger) validateTrigger(trigger *models.Trigger) error {
	if strings.TrimSpace(trigger.Name) == "" {
		return ErrTriggerNameRequired
	}

	err := t.validate.Struct(trigger)
	if err != nil {
		return NewValidationError("validateTrigger", "INVALID_TRIGGER", err.Error(), ErrInvalidRequest)
	}

	err = t.validateConfigForType(trigger)
	if err != nil {
		return err
	}

	return t.validateActions(trigger)
}

func (t *Trigger) validateConfigForType(trigger *models.Trigger) error {
	switch trigger.Type {
	case models.TriggerTypeTimeBased:
		if trigger.TimeConfig == nil || trigger.EventConfig != nil || trigger.ConditionConfig != nil {
			return configMismatch(trigger.Type, "time_config")
		}

		if trigger.TimeConfig.Frequency == models.FrequencyCustom {
			_, err := t.cronParser.Parse(trigger.TimeConfig.CronExpression)
			if err != nil {
				return NewValidationError(
					"validateConfigForType",
					"INVALID_CRON",
					fmt.Sprintf("invalid cron expression '%s': %v", trigger.TimeConfig.CronExpression, err),
					ErrInvalidCron,
				)
			}
		}
	case models.TriggerTypeEventBased:
		if trigger.EventConfig == nil || trigger.TimeConfig != nil || trigger.ConditionConfig != nil {
			return configMismatch(trigger.Type, "event_config")
		}

		if !events.IsDomainEvent(trigger.EventConfig.Event) {
			return NewValidationError(
				"validateConfigForType",
				"UNKNOWN_EVENT",
				fmt.Sprintf("unknown domain event '%s'", trigger.EventConfig.Event),
				ErrUnknownEvent,
			)
		}
	case models.TriggerTypeConditionBased:
		if trigger.ConditionConfig == nil || trigger.TimeConfig != nil || trigger.EventConfig != nil {
			return configMismatch(trigger.Type, "condition_config")
		}
	default:
		return NewValidationError(
			"validateConfigForType",
			"INVALID_TYPE",
			fmt.Sprintf("invalid trigger type '%s'", trigger.Type),
			ErrInvalidRequest,
		)
	}

	return nil
}

func (t *Trigger) validateActions(trigger *models.Trigger) error {
	for _, action := range trigger.Actions {
		err := t.registry.ValidateActionConfig(string(action.Type), action.Config)
		if err != nil {
			return NewValidationError(
				"validateActions",
				"INVALID_ACTION_CONFIG",
				err.Error(),
				ErrInvalidActionConfig,
			)
		}
	}

	return nil
}

func configMismatch(triggerType models.TriggerType, expected string) error {
	return NewValidationError(
		"validateConfigForType",
		"CONFIG_MISMATCH",
		fmt.Sprintf("%s triggers require exactly the %s block", triggerType, expected),
		ErrConfigMismatch,
	)
}

func (t *Trigger) baseEvent(eventType events.EventType) events.BaseEvent {
	id := uuid.New().String()
	if t.eventBus != nil {
		id = t.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

func (t *Trigger) publish(ctx context.Context, key string, event eventbus.Event) {
	if t.eventBus == nil {
		return
	}

	// Lifecycle events are advisory; losing one must not fail the write.
	err := t.eventBus.Publish(ctx, key, event)
	if err != nil {
		t.logger.Error("Failed to publish lifecycle event",
			"event_type", event.GetType(),
			"trigger_id", key,
			"error", err)
	}
}
