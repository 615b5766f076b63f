package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/richcrm/automation/pkg/events"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/persistence"
	"github.com/richcrm/automation/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) persistence.TriggerRepository {
	t.Helper()

	return file.NewPersistence(t.TempDir()).TriggerRepository()
}

func newTrigger(id, name string, status models.TriggerStatus, createdAt time.Time) *models.Trigger {
	return &models.Trigger{
		ID:     id,
		Name:   name,
		Type:   models.TriggerTypeEventBased,
		Status: status,
		EventConfig: &models.EventConfig{
			Event: events.DomainEnquiryCreated,
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestSaveAndGetByID(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	trigger := newTrigger("t1", "Welcome enquiry", models.TriggerStatusActive, time.Now().UTC())
	trigger.Actions = []models.Action{
		{Type: models.ActionSendEmail, Config: map[string]any{"subject": "Hello"}, Order: 1, Enabled: true},
	}

	require.NoError(t, repo.Save(ctx, trigger))

	loaded, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Welcome enquiry", loaded.Name)
	assert.Equal(t, models.TriggerTypeEventBased, loaded.Type)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, "Hello", loaded.Actions[0].Config["subject"])
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	repo := newTestStore(t)

	trigger, err := repo.GetByID(context.Background(), "no-such-trigger")
	require.NoError(t, err)
	assert.Nil(t, trigger)
}

func TestGetByName(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	require.NoError(t, repo.Save(ctx, newTrigger("t1", "First", models.TriggerStatusActive, time.Now())))

	found, err := repo.GetByName(ctx, "First")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "t1", found.ID)

	missing, err := repo.GetByName(ctx, "Second")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListTriggersFilterAndPagination(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, newTrigger("t1", "Alpha", models.TriggerStatusActive, base)))
	require.NoError(t, repo.Save(ctx, newTrigger("t2", "Beta", models.TriggerStatusDraft, base.Add(time.Hour))))
	require.NoError(t, repo.Save(ctx, newTrigger("t3", "Gamma", models.TriggerStatusActive, base.Add(2*time.Hour))))

	status := models.TriggerStatusActive
	result, err := repo.ListTriggers(ctx, persistence.ListTriggersOptions{Status: &status})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.TotalCount)
	require.Len(t, result.Triggers, 2)
	// Default sort is created_at desc.
	assert.Equal(t, "t3", result.Triggers[0].ID)
	assert.Equal(t, "t1", result.Triggers[1].ID)

	page, err := repo.ListTriggers(ctx, persistence.ListTriggersOptions{Limit: 2, SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalCount)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Triggers, 2)
	assert.Equal(t, "Alpha", page.Triggers[0].Name)

	_, err = repo.ListTriggers(ctx, persistence.ListTriggersOptions{SortBy: "analytics"})
	require.ErrorIs(t, err, persistence.ErrInvalidSortField)
}

func TestListByEventOnlyActiveEventTriggers(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	now := time.Now()
	require.NoError(t, repo.Save(ctx, newTrigger("t1", "Active listener", models.TriggerStatusActive, now)))
	require.NoError(t, repo.Save(ctx, newTrigger("t2", "Draft listener", models.TriggerStatusDraft, now)))

	other := newTrigger("t3", "Other event", models.TriggerStatusActive, now)
	other.EventConfig.Event = events.DomainStatusChanged
	require.NoError(t, repo.Save(ctx, other))

	timeBased := &models.Trigger{
		ID:         "t4",
		Name:       "Daily digest",
		Type:       models.TriggerTypeTimeBased,
		Status:     models.TriggerStatusActive,
		TimeConfig: &models.TimeConfig{Frequency: models.FrequencyDaily},
	}
	require.NoError(t, repo.Save(ctx, timeBased))

	matched, err := repo.ListByEvent(ctx, events.DomainEnquiryCreated)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "t1", matched[0].ID)
}

func TestListActiveByType(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	now := time.Now()
	require.NoError(t, repo.Save(ctx, newTrigger("t1", "Event one", models.TriggerStatusActive, now)))

	timeBased := &models.Trigger{
		ID:         "t2",
		Name:       "Daily digest",
		Type:       models.TriggerTypeTimeBased,
		Status:     models.TriggerStatusActive,
		TimeConfig: &models.TimeConfig{Frequency: models.FrequencyDaily},
	}
	require.NoError(t, repo.Save(ctx, timeBased))

	inactive := &models.Trigger{
		ID:         "t3",
		Name:       "Paused digest",
		Type:       models.TriggerTypeTimeBased,
		Status:     models.TriggerStatusInactive,
		TimeConfig: &models.TimeConfig{Frequency: models.FrequencyDaily},
	}
	require.NoError(t, repo.Save(ctx, inactive))

	matched, err := repo.ListActiveByType(ctx, models.TriggerTypeTimeBased)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "t2", matched[0].ID)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	require.NoError(t, repo.Save(ctx, newTrigger("t1", "Doomed", models.TriggerStatusDraft, time.Now())))
	require.NoError(t, repo.Delete(ctx, "t1"))

	loaded, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	err = repo.Delete(ctx, "t1")
	require.Error(t, err)
	assert.True(t, persistence.IsTriggerNotFound(err))
}

func TestIncrementAnalytics(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	require.NoError(t, repo.Save(ctx, newTrigger("t1", "Counted", models.TriggerStatusActive, time.Now())))

	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.IncrementAnalytics(ctx, "t1", models.AnalyticsSnapshot{
		Succeeded:      2,
		LastExecutedAt: first,
		DurationMs:     100,
	}))

	second := first.Add(time.Hour)
	require.NoError(t, repo.IncrementAnalytics(ctx, "t1", models.AnalyticsSnapshot{
		Succeeded:      1,
		Failed:         1,
		LastExecutedAt: second,
		DurationMs:     300,
		LastError:      "webhook returned 502",
	}))

	loaded, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	analytics := loaded.Analytics
	assert.EqualValues(t, 2, analytics.TotalExecutions)
	assert.EqualValues(t, 3, analytics.SuccessfulExecutions)
	assert.EqualValues(t, 1, analytics.FailedExecutions)
	assert.InDelta(t, 200, analytics.AverageExecutionTime, 0.001)
	assert.Equal(t, "webhook returned 502", analytics.LastError)
	require.NotNil(t, analytics.LastExecutedAt)
	assert.True(t, analytics.LastExecutedAt.Equal(second))
}

func TestIncrementAnalyticsMissingTrigger(t *testing.T) {
	repo := newTestStore(t)

	err := repo.IncrementAnalytics(context.Background(), "ghost", models.AnalyticsSnapshot{
		Succeeded:      1,
		LastExecutedAt: time.Now(),
	})
	require.Error(t, err)
	assert.True(t, persistence.IsTriggerNotFound(err))
}
