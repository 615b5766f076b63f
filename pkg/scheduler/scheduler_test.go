package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/richcrm/automation/pkg/automation"
	"github.com/richcrm/automation/pkg/mocks"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeExecutor) Execute(_ context.Context, triggerID string, _ models.ExecutionContext) (*automation.ExecutionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, triggerID)

	return &automation.ExecutionReport{TriggerID: triggerID}, nil
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func timeTrigger(id string, config *models.TimeConfig) *models.Trigger {
	return &models.Trigger{
		ID:         id,
		Name:       "Scheduled trigger " + id,
		Type:       models.TriggerTypeTimeBased,
		Status:     models.TriggerStatusActive,
		TimeConfig: config,
	}
}

func newTestScheduler(t *testing.T, clock clockwork.Clock) (*scheduler.Scheduler, *mocks.TriggerRepository, *fakeExecutor) {
	t.Helper()

	repo := &mocks.TriggerRepository{}
	executor := &fakeExecutor{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return scheduler.NewScheduler("test-scheduler", repo, executor, clock, logger, time.Minute), repo, executor
}

func TestSpecTimeBased(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		config models.TimeConfig
		want   string
	}{
		{
			name:   "daily at time of day",
			config: models.TimeConfig{Frequency: models.FrequencyDaily, TimeOfDay: "08:30"},
			want:   "30 8 * * *",
		},
		{
			name:   "daily defaults to nine",
			config: models.TimeConfig{Frequency: models.FrequencyDaily},
			want:   "0 9 * * *",
		},
		{
			name: "weekly on named days",
			config: models.TimeConfig{
				Frequency:  models.FrequencyWeekly,
				TimeOfDay:  "10:00",
				DaysOfWeek: []string{"Monday", "friday"},
			},
			want: "0 10 * * 1,5",
		},
		{
			name:   "monthly on the first",
			config: models.TimeConfig{Frequency: models.FrequencyMonthly, TimeOfDay: "07:15"},
			want:   "15 7 1 * *",
		},
		{
			name:   "custom cron expression",
			config: models.TimeConfig{Frequency: models.FrequencyCustom, CronExpression: "*/10 * * * *"},
			want:   "*/10 * * * *",
		},
		{
			name: "timezone prefix",
			config: models.TimeConfig{
				Frequency: models.FrequencyDaily,
				TimeOfDay: "18:00",
				Timezone:  "Asia/Kolkata",
			},
			want: "CRON_TZ=Asia/Kolkata 0 18 * * *",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := tt.config
			spec, err := scheduler.Spec(timeTrigger("t1", &config), now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec)
		})
	}
}

func TestSpecOneShot(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	future := now.Add(2 * time.Hour)
	spec, err := scheduler.Spec(timeTrigger("t1", &models.TimeConfig{
		Frequency: models.FrequencyOnce,
		StartDate: &future,
	}), now)
	require.NoError(t, err)
	assert.Equal(t, "@at 2025-03-01T14:00:00Z", spec)

	past := now.Add(-time.Hour)
	spec, err = scheduler.Spec(timeTrigger("t1", &models.TimeConfig{
		Frequency: models.FrequencyOnce,
		StartDate: &past,
	}), now)
	require.NoError(t, err)
	assert.Empty(t, spec, "past one-shot has nothing left to run")

	_, err = scheduler.Spec(timeTrigger("t1", &models.TimeConfig{
		Frequency: models.FrequencyOnce,
	}), now)
	require.Error(t, err, "one-shot without start_date")
}

func TestSpecInvalid(t *testing.T) {
	now := time.Now()

	_, err := scheduler.Spec(timeTrigger("t1", nil), now)
	require.Error(t, err)

	_, err = scheduler.Spec(timeTrigger("t1", &models.TimeConfig{
		Frequency: models.FrequencyDaily,
		TimeOfDay: "25:99",
	}), now)
	require.Error(t, err)

	_, err = scheduler.Spec(timeTrigger("t1", &models.TimeConfig{
		Frequency: models.FrequencyCustom,
	}), now)
	require.Error(t, err)

	_, err = scheduler.Spec(timeTrigger("t1", &models.TimeConfig{
		Frequency:  models.FrequencyWeekly,
		DaysOfWeek: []string{"someday"},
	}), now)
	require.Error(t, err)
}

func TestSpecConditionBased(t *testing.T) {
	now := time.Now()

	tests := []struct {
		frequency string
		want      string
	}{
		{"hourly", "0 * * * *"},
		{"daily", "0 0 * * *"},
		{"realtime", "* * * * *"},
		{"", "* * * * *"},
	}

	for _, tt := range tests {
		trigger := &models.Trigger{
			ID:              "c1",
			Type:            models.TriggerTypeConditionBased,
			Status:          models.TriggerStatusActive,
			ConditionConfig: &models.ConditionConfig{Frequency: tt.frequency},
		}

		spec, err := scheduler.Spec(trigger, now)
		require.NoError(t, err)
		assert.Equal(t, tt.want, spec)
	}
}

func TestSyncSchedulesAndUnschedules(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	sched, repo, _ := newTestScheduler(t, clock)

	trigger := timeTrigger("t1", &models.TimeConfig{Frequency: models.FrequencyDaily, TimeOfDay: "08:00"})

	repo.On("ListActiveByType", mock.Anything, models.TriggerTypeTimeBased).
		Return([]*models.Trigger{trigger}, nil).Once()
	repo.On("ListActiveByType", mock.Anything, models.TriggerTypeConditionBased).
		Return([]*models.Trigger{}, nil)

	require.NoError(t, sched.Sync(context.Background()))
	assert.Equal(t, 1, sched.ScheduledCount())

	// Trigger deactivated between syncs.
	repo.On("ListActiveByType", mock.Anything, models.TriggerTypeTimeBased).
		Return([]*models.Trigger{}, nil)

	require.NoError(t, sched.Sync(context.Background()))
	assert.Zero(t, sched.ScheduledCount())
}

func TestSyncReplacesChangedSchedule(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	sched, repo, _ := newTestScheduler(t, clock)

	repo.On("ListActiveByType", mock.Anything, models.TriggerTypeConditionBased).
		Return([]*models.Trigger{}, nil)
	repo.On("ListActiveByType", mock.Anything, models.TriggerTypeTimeBased).
		Return([]*models.Trigger{
			timeTrigger("t1", &models.TimeConfig{Frequency: models.FrequencyDaily, TimeOfDay: "08:00"}),
		}, nil).Once()

	require.NoError(t, sched.Sync(context.Background()))

	repo.On("ListActiveByType", mock.Anything, models.TriggerTypeTimeBased).
		Return([]*models.Trigger{
			timeTrigger("t1", &models.TimeConfig{Frequency: models.FrequencyWeekly, TimeOfDay: "08:00"}),
		}, nil)

	require.NoError(t, sched.Sync(context.Background()))
	assert.Equal(t, 1, sched.ScheduledCount())
}

func TestSyncSkipsUnschedulableTrigger(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	sched, repo, _ := newTestScheduler(t, clock)

	repo.On("ListActiveByType", mock.Anything, models.TriggerTypeTimeBased).
		Return([]*models.Trigger{
			timeTrigger("broken", &models.TimeConfig{Frequency: models.FrequencyCustom}),
		}, nil)
	repo.On("ListActiveByType", mock.Anything, models.TriggerTypeConditionBased).
		Return([]*models.Trigger{}, nil)

	require.NoError(t, sched.Sync(context.Background()))
	assert.Zero(t, sched.ScheduledCount())
}

func TestOneShotFiresOnce(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	sched, repo, executor := newTestScheduler(t, clock)

	startDate := now.Add(time.Hour)
	repo.On("ListActiveByType", mock.Anything, models.TriggerTypeTimeBased).
		Return([]*models.Trigger{
			timeTrigger("t1", &models.TimeConfig{Frequency: models.FrequencyOnce, StartDate: &startDate}),
		}, nil)
	repo.On("ListActiveByType", mock.Anything, models.TriggerTypeConditionBased).
		Return([]*models.Trigger{}, nil)

	require.NoError(t, sched.Sync(context.Background()))
	assert.Zero(t, executor.callCount())

	clock.Advance(time.Hour)
	assert.Eventually(t, func() bool {
		return executor.callCount() == 1
	}, time.Second, 10*time.Millisecond)
}
