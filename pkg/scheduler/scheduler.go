// Package scheduler scans active time- and condition-based triggers and
// fires them on their recurrence schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/richcrm/automation/pkg/automation"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/persistence"
	"github.com/robfig/cron/v3"
)

// ScheduledEvent is the event name carried in the execution context of
// scheduler-fired runs.
const ScheduledEvent = "scheduled"

const oneShotPrefix = "@at "

// TriggerExecutor runs one trigger. Satisfied by automation.Executor.
type TriggerExecutor interface {
	Execute(ctx context.Context, triggerID string, execCtx models.ExecutionContext) (*automation.ExecutionReport, error)
}

// Scheduler keeps a cron entry per schedulable active trigger and
// re-syncs against the store periodically so create/update/deactivate
// take effect without a restart.
type Scheduler struct {
	id           string
	repository   persistence.TriggerRepository
	executor     TriggerExecutor
	clock        clockwork.Clock
	logger       *slog.Logger
	cron         *cron.Cron
	syncInterval time.Duration

	mu      sync.Mutex
	entries map[string]scheduledEntry
}

type scheduledEntry struct {
	spec   string
	cancel func()
}

func NewScheduler(
	id string,
	repository persistence.TriggerRepository,
	executor TriggerExecutor,
	clock clockwork.Clock,
	logger *slog.Logger,
	syncInterval time.Duration,
) *Scheduler {
	return &Scheduler{
		id:         id,
		repository: repository,
		executor:   executor,
		clock:      clock,
		logger:     logger.With("module", "scheduler", "scheduler_id", id),
		cron: cron.New(cron.WithParser(
			cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		)),
		syncInterval: syncInterval,
		entries:      make(map[string]scheduledEntry),
	}
}

// Start runs the initial sync and then blocks, re-syncing on every tick,
// until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler", "sync_interval", s.syncInterval)

	err := s.Sync(ctx)
	if err != nil {
		return err
	}

	s.cron.Start()
	defer s.cron.Stop()

	ticker := s.clock.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled, stopping...")

			return nil
		case <-ticker.Chan():
			err := s.Sync(ctx)
			if err != nil {
				s.logger.Error("Failed to sync triggers", "error", err)
			}
		}
	}
}

// Sync reconciles cron entries with the store: new active triggers are
// scheduled, changed schedules are replaced, deactivated or deleted
// triggers are removed.
func (s *Scheduler) Sync(ctx context.Context) error {
	desired := make(map[string]string)

	for _, triggerType := range []models.TriggerType{
		models.TriggerTypeTimeBased,
		models.TriggerTypeConditionBased,
	} {
		triggers, err := s.repository.ListActiveByType(ctx, triggerType)
		if err != nil {
			return fmt.Errorf("failed to list active %s triggers: %w", triggerType, err)
		}

		for _, trigger := range triggers {
			spec, err := Spec(trigger, s.clock.Now())
			if err != nil {
				s.logger.Warn("Skipping unschedulable trigger",
					"trigger_id", trigger.ID,
					"trigger_name", trigger.Name,
					"error", err)

				continue
			}

			if spec == "" {
				continue
			}

			desired[trigger.ID] = spec
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		spec, ok := desired[id]
		if ok && spec == entry.spec {
			delete(desired, id)

			continue
		}

		entry.cancel()
		delete(s.entries, id)
		s.logger.Info("Unscheduled trigger", "trigger_id", id)
	}

	for id, spec := range desired {
		entry, err := s.schedule(ctx, id, spec)
		if err != nil {
			s.logger.Warn("Failed to schedule trigger",
				"trigger_id", id,
				"spec", spec,
				"error", err)

			continue
		}

		s.entries[id] = entry
		s.logger.Info("Scheduled trigger", "trigger_id", id, "spec", spec)
	}

	return nil
}

// ScheduledCount returns the number of triggers currently scheduled.
func (s *Scheduler) ScheduledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Scheduler) schedule(ctx context.Context, triggerID, spec string) (scheduledEntry, error) {
	if at, ok := strings.CutPrefix(spec, oneShotPrefix); ok {
		fireAt, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return scheduledEntry{}, fmt.Errorf("invalid one-shot time %q: %w", at, err)
		}

		timer := s.clock.AfterFunc(fireAt.Sub(s.clock.Now()), func() {
			s.fire(ctx, triggerID)
		})

		return scheduledEntry{spec: spec, cancel: func() { timer.Stop() }}, nil
	}

	entryID, err := s.cron.AddFunc(spec, func() {
		s.fire(ctx, triggerID)
	})
	if err != nil {
		return scheduledEntry{}, err
	}

	return scheduledEntry{spec: spec, cancel: func() { s.cron.Remove(entryID) }}, nil
}

func (s *Scheduler) fire(ctx context.Context, triggerID string) {
	logger := s.logger.With("trigger_id", triggerID)
	logger.Info("Firing scheduled trigger")

	execCtx := models.ExecutionContext{
		Event: ScheduledEvent,
		Data:  map[string]any{},
	}

	report, err := s.executor.Execute(ctx, triggerID, execCtx)

	switch {
	case errors.Is(err, automation.ErrConditionsNotMet):
		logger.Info("Trigger conditions not met, skipping")
	case err != nil:
		logger.Error("Scheduled trigger execution failed", "error", err)
	default:
		logger.Info("Scheduled trigger executed",
			"actions", len(report.Results),
			"duration_ms", report.DurationMs)
	}
}

// Spec derives the cron spec for a trigger. It returns "" with a nil error
// when the trigger is schedulable but has nothing left to run, such as a
// one-shot whose start date already passed.
func Spec(trigger *models.Trigger, now time.Time) (string, error) {
	switch trigger.Type {
	case models.TriggerTypeTimeBased:
		return timeSpec(trigger.TimeConfig, now)
	case models.TriggerTypeConditionBased:
		return conditionSpec(trigger.ConditionConfig)
	default:
		return "", fmt.Errorf("trigger type %q is not schedulable", trigger.Type)
	}
}

func timeSpec(config *models.TimeConfig, now time.Time) (string, error) {
	if config == nil {
		return "", errors.New("missing time_config")
	}

	hour, minute, err := parseTimeOfDay(config.TimeOfDay)
	if err != nil {
		return "", err
	}

	var spec string

	switch config.Frequency {
	case models.FrequencyOnce:
		if config.StartDate == nil {
			return "", errors.New("one-shot trigger requires a start_date")
		}

		if !config.StartDate.After(now) {
			return "", nil
		}

		return oneShotPrefix + config.StartDate.UTC().Format(time.RFC3339), nil
	case models.FrequencyDaily:
		spec = fmt.Sprintf("%d %d * * *", minute, hour)
	case models.FrequencyWeekly:
		days, err := cronDaysOfWeek(config.DaysOfWeek)
		if err != nil {
			return "", err
		}

		spec = fmt.Sprintf("%d %d * * %s", minute, hour, days)
	case models.FrequencyMonthly:
		spec = fmt.Sprintf("%d %d 1 * *", minute, hour)
	case models.FrequencyCustom:
		if config.CronExpression == "" {
			return "", errors.New("custom frequency requires a cron_expression")
		}

		spec = config.CronExpression
	default:
		return "", fmt.Errorf("unknown frequency %q", config.Frequency)
	}

	if config.Timezone != "" {
		spec = "CRON_TZ=" + config.Timezone + " " + spec
	}

	return spec, nil
}

func conditionSpec(config *models.ConditionConfig) (string, error) {
	if config == nil {
		return "", errors.New("missing condition_config")
	}

	switch config.Frequency {
	case "hourly":
		return "0 * * * *", nil
	case "daily":
		return "0 0 * * *", nil
	case "realtime", "":
		// Realtime is approximated by a minutely scan.
		return "* * * * *", nil
	default:
		return "", fmt.Errorf("unknown evaluation frequency %q", config.Frequency)
	}
}

func parseTimeOfDay(timeOfDay string) (hour, minute int, err error) {
	if timeOfDay == "" {
		return 9, 0, nil
	}

	parsed, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time_of_day %q: %w", timeOfDay, err)
	}

	return parsed.Hour(), parsed.Minute(), nil
}

var cronWeekdays = map[string]string{
	"sunday":    "0",
	"monday":    "1",
	"tuesday":   "2",
	"wednesday": "3",
	"thursday":  "4",
	"friday":    "5",
	"saturday":  "6",
}

func cronDaysOfWeek(days []string) (string, error) {
	if len(days) == 0 {
		return "1", nil
	}

	nums := make([]string, 0, len(days))

	for _, day := range days {
		num, ok := cronWeekdays[strings.ToLower(day)]
		if !ok {
			return "", fmt.Errorf("unknown day of week %q", day)
		}

		nums = append(nums, num)
	}

	return strings.Join(nums, ","), nil
}
