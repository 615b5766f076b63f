package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/richcrm/automation/pkg/mocks"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/persistence"
	"github.com/richcrm/automation/pkg/protocol"
	"github.com/richcrm/automation/pkg/registry"
	"github.com/richcrm/automation/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type allowAllFactory struct {
	id string
}

func (f *allowAllFactory) ID() string          { return f.id }
func (f *allowAllFactory) Name() string        { return f.id }
func (f *allowAllFactory) Description() string { return "test factory" }

func (f *allowAllFactory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

func (f *allowAllFactory) Create(_ map[string]any) (protocol.Action, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*services.Trigger, *mocks.Persistence) {
	t.Helper()

	reg := registry.NewRegistry(testLogger())
	reg.RegisterAction(&allowAllFactory{id: "send_email"})

	store := mocks.NewPersistence()

	return services.NewTrigger(store, reg, nil), store
}

func validEventTrigger() *models.Trigger {
	return &models.Trigger{
		Name:   "High value enquiry",
		Type:   models.TriggerTypeEventBased,
		Status: models.TriggerStatusActive,
		EventConfig: &models.EventConfig{
			Event: "enquiry_created",
		},
		Actions: []models.Action{
			{Type: models.ActionSendEmail, Order: 1, Enabled: true},
		},
	}
}

func TestTriggerCreate(t *testing.T) {
	service, store := newTestService(t)

	store.Repo.On("GetByName", mock.Anything, "High value enquiry").Return(nil, nil)
	store.Repo.On("Save", mock.Anything, mock.AnythingOfType("*models.Trigger")).Return(nil)

	created, err := service.Create(context.Background(), validEventTrigger())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Zero(t, created.Analytics.TotalExecutions)

	store.Repo.AssertExpectations(t)
}

func TestTriggerCreatePublishFailureIsNonFatal(t *testing.T) {
	reg := registry.NewRegistry(testLogger())
	reg.RegisterAction(&allowAllFactory{id: "send_email"})

	store := mocks.NewPersistence()
	bus := &mocks.EventBus{}
	service := services.NewTrigger(store, reg, bus)

	store.Repo.On("GetByName", mock.Anything, mock.Anything).Return(nil, nil)
	store.Repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker unavailable"))

	created, err := service.Create(context.Background(), validEventTrigger())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	bus.AssertExpectations(t)
}

func TestTriggerCreateDefaultsToDraft(t *testing.T) {
	service, store := newTestService(t)

	store.Repo.On("GetByName", mock.Anything, mock.Anything).Return(nil, nil)
	store.Repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	trigger := validEventTrigger()
	trigger.Status = ""

	created, err := service.Create(context.Background(), trigger)
	require.NoError(t, err)
	assert.Equal(t, models.TriggerStatusDraft, created.Status)
}

func TestTriggerCreateDuplicateName(t *testing.T) {
	service, store := newTestService(t)

	existing := validEventTrigger()
	existing.ID = "existing-id"

	store.Repo.On("GetByName", mock.Anything, "High value enquiry").Return(existing, nil)

	_, err := service.Create(context.Background(), validEventTrigger())
	assert.ErrorIs(t, err, services.ErrTriggerNameTaken)
	assert.True(t, services.IsConflictError(err))
}

func TestTriggerCreateValidation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	t.Run("nil trigger", func(t *testing.T) {
		_, err := service.Create(ctx, nil)
		assert.ErrorIs(t, err, services.ErrTriggerNil)
	})

	t.Run("missing name", func(t *testing.T) {
		trigger := validEventTrigger()
		trigger.Name = "  "

		_, err := service.Create(ctx, trigger)
		assert.ErrorIs(t, err, services.ErrTriggerNameRequired)
	})

	t.Run("config mismatch", func(t *testing.T) {
		trigger := validEventTrigger()
		trigger.TimeConfig = &models.TimeConfig{Frequency: models.FrequencyDaily}

		_, err := service.Create(ctx, trigger)
		assert.ErrorIs(t, err, services.ErrConfigMismatch)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("unknown event", func(t *testing.T) {
		trigger := validEventTrigger()
		trigger.EventConfig.Event = "meteor_strike"

		_, err := service.Create(ctx, trigger)
		assert.ErrorIs(t, err, services.ErrUnknownEvent)
	})

	t.Run("invalid cron", func(t *testing.T) {
		trigger := validEventTrigger()
		trigger.Type = models.TriggerTypeTimeBased
		trigger.EventConfig = nil
		trigger.TimeConfig = &models.TimeConfig{
			Frequency:      models.FrequencyCustom,
			CronExpression: "not a cron",
		}

		_, err := service.Create(ctx, trigger)
		assert.ErrorIs(t, err, services.ErrInvalidCron)
	})

	t.Run("valid cron", func(t *testing.T) {
		_, store := newTestService(t)
		freshService := servicesWithStore(t, store)

		store.Repo.On("GetByName", mock.Anything, mock.Anything).Return(nil, nil)
		store.Repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		trigger := validEventTrigger()
		trigger.Type = models.TriggerTypeTimeBased
		trigger.EventConfig = nil
		trigger.TimeConfig = &models.TimeConfig{
			Frequency:      models.FrequencyCustom,
			CronExpression: "0 9 * * 1",
		}

		_, err := freshService.Create(ctx, trigger)
		assert.NoError(t, err)
	})

	t.Run("unregistered action type", func(t *testing.T) {
		trigger := validEventTrigger()
		trigger.Actions = []models.Action{{Type: "teleport", Order: 1, Enabled: true}}

		_, err := service.Create(ctx, trigger)
		assert.ErrorIs(t, err, services.ErrInvalidActionConfig)
	})
}

func servicesWithStore(t *testing.T, store *mocks.Persistence) *services.Trigger {
	t.Helper()

	reg := registry.NewRegistry(testLogger())
	reg.RegisterAction(&allowAllFactory{id: "send_email"})

	return services.NewTrigger(store, reg, nil)
}

func TestTriggerUpdatePreservesAnalytics(t *testing.T) {
	service, store := newTestService(t)

	stored := validEventTrigger()
	stored.ID = "trigger-1"
	stored.Analytics = models.Analytics{TotalExecutions: 12, SuccessfulExecutions: 10, FailedExecutions: 2}

	store.Repo.On("GetByID", mock.Anything, "trigger-1").Return(stored, nil)
	store.Repo.On("Save", mock.Anything, mock.MatchedBy(func(trigger *models.Trigger) bool {
		return trigger.Analytics.TotalExecutions == 12
	})).Return(nil)

	update := validEventTrigger()
	update.Description = "now with a description"
	update.Analytics = models.Analytics{TotalExecutions: 999}

	updated, err := service.Update(context.Background(), "trigger-1", update)
	require.NoError(t, err)

	assert.Equal(t, int64(12), updated.Analytics.TotalExecutions)
	store.Repo.AssertExpectations(t)
}

func TestTriggerUpdateNotFound(t *testing.T) {
	service, store := newTestService(t)

	store.Repo.On("GetByID", mock.Anything, "missing").Return(nil, nil)

	_, err := service.Update(context.Background(), "missing", validEventTrigger())
	assert.ErrorIs(t, err, services.ErrTriggerNotFound)
}

func TestTriggerDelete(t *testing.T) {
	service, store := newTestService(t)

	stored := validEventTrigger()
	stored.ID = "trigger-1"

	store.Repo.On("GetByID", mock.Anything, "trigger-1").Return(stored, nil)
	store.Repo.On("Delete", mock.Anything, "trigger-1").Return(nil)

	err := service.Delete(context.Background(), "trigger-1")
	require.NoError(t, err)
	store.Repo.AssertExpectations(t)
}

func TestTriggerActivateDeactivate(t *testing.T) {
	service, store := newTestService(t)

	stored := validEventTrigger()
	stored.ID = "trigger-1"
	stored.Status = models.TriggerStatusDraft

	store.Repo.On("GetByID", mock.Anything, "trigger-1").Return(stored, nil)
	store.Repo.On("Save", mock.Anything, mock.MatchedBy(func(trigger *models.Trigger) bool {
		return trigger.Status == models.TriggerStatusActive
	})).Return(nil)

	activated, err := service.Activate(context.Background(), "trigger-1")
	require.NoError(t, err)
	assert.Equal(t, models.TriggerStatusActive, activated.Status)

	// Already active: no second save.
	again, err := service.Activate(context.Background(), "trigger-1")
	require.NoError(t, err)
	assert.Equal(t, models.TriggerStatusActive, again.Status)
	store.Repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestListTriggersDefaults(t *testing.T) {
	service, store := newTestService(t)

	store.Repo.On("ListTriggers", mock.Anything, mock.MatchedBy(func(opts persistence.ListTriggersOptions) bool {
		return opts.Limit == 20 && opts.SortBy == "created_at" && opts.SortOrder == "desc"
	})).Return(&persistence.ListTriggersResult{Triggers: nil, TotalCount: 0}, nil)

	_, err := service.ListTriggers(context.Background(), services.ListTriggersRequest{})
	require.NoError(t, err)
	store.Repo.AssertExpectations(t)
}

func TestListTriggersInvalidSort(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.ListTriggers(context.Background(), services.ListTriggersRequest{SortBy: "last_error"})
	assert.ErrorIs(t, err, services.ErrInvalidSortField)
}
