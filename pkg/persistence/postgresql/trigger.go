package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/persistence"
)

const uniqueViolationCode = "23505"

// TriggerRepository handles trigger-related database operations.
type TriggerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTriggerRepository creates a new trigger repository.
func NewTriggerRepository(db *sql.DB, logger *slog.Logger) *TriggerRepository {
	return &TriggerRepository{db: db, logger: logger}
}

const triggerColumns = `
	id
  , name
  , description
  , trigger_type
  , status
  , time_config
  , event_config
  , condition_config
  , actions
  , target
  , execution
  , access_control
  , total_executions
  , successful_executions
  , failed_executions
  , last_executed_at
  , average_execution_time
  , last_error
  , created_at
  , updated_at
`

// ListTriggers returns paginated and filtered triggers.
func (r *TriggerRepository) ListTriggers(ctx context.Context, opts persistence.ListTriggersOptions) (*persistence.ListTriggersResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	sortBy, ok := map[string]string{
		"":           "created_at",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"name":       "name",
	}[opts.SortBy]
	if !ok {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	sortOrder := "DESC"
	if opts.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	where := "WHERE 1=1"
	args := make([]any, 0, 4)

	if opts.Type != nil {
		args = append(args, string(*opts.Type))
		where += fmt.Sprintf(" AND trigger_type = $%d", len(args))
	}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var totalCount int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM triggers "+where, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count triggers: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf("SELECT %s FROM triggers %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		triggerColumns, where, sortBy, sortOrder, len(args)-1, len(args))

	triggers, err := r.queryTriggers(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &persistence.ListTriggersResult{
		Triggers:    triggers,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(triggers)) < totalCount,
	}, nil
}

func (r *TriggerRepository) GetByID(ctx context.Context, id string) (*models.Trigger, error) {
	query := fmt.Sprintf("SELECT %s FROM triggers WHERE id = $1", triggerColumns)

	trigger, err := r.scanTrigger(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan trigger: %w", err)
	}

	return trigger, nil
}

func (r *TriggerRepository) GetByName(ctx context.Context, name string) (*models.Trigger, error) {
	query := fmt.Sprintf("SELECT %s FROM triggers WHERE name = $1", triggerColumns)

	trigger, err := r.scanTrigger(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan trigger: %w", err)
	}

	return trigger, nil
}

// ListByEvent returns active event-based triggers listening for the event.
func (r *TriggerRepository) ListByEvent(ctx context.Context, event string) ([]*models.Trigger, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM triggers
		WHERE status = 'active'
		  AND trigger_type = 'event_based'
		  AND event_config->>'event' = $1
		ORDER BY created_at
	`, triggerColumns)

	return r.queryTriggers(ctx, query, event)
}

func (r *TriggerRepository) ListActiveByType(ctx context.Context, triggerType models.TriggerType) ([]*models.Trigger, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM triggers
		WHERE status = 'active' AND trigger_type = $1
		ORDER BY created_at
	`, triggerColumns)

	return r.queryTriggers(ctx, query, string(triggerType))
}

// Save upserts a trigger. Analytics counters are written as-is; the
// execution path must use IncrementAnalytics instead.
func (r *TriggerRepository) Save(ctx context.Context, trigger *models.Trigger) error {
	now := time.Now().UTC()

	if trigger.CreatedAt.IsZero() {
		trigger.CreatedAt = now
	}

	trigger.UpdatedAt = now

	timeConfigJSON, err := marshalNullable(trigger.TimeConfig)
	if err != nil {
		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	eventConfigJSON, err := marshalNullable(trigger.EventConfig)
	if err != nil {
		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	conditionConfigJSON, err := marshalNullable(trigger.ConditionConfig)
	if err != nil {
		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	targetJSON, err := marshalNullable(trigger.Target)
	if err != nil {
		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	actionsJSON, err := json.Marshal(trigger.Actions)
	if err != nil {
		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	executionJSON, err := json.Marshal(trigger.Execution)
	if err != nil {
		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	accessControlJSON, err := json.Marshal(trigger.AccessControl)
	if err != nil {
		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	query := `
		INSERT INTO triggers (id, name, description, trigger_type, status,
			time_config, event_config, condition_config, actions, target,
			execution, access_control, total_executions, successful_executions,
			failed_executions, last_executed_at, average_execution_time,
			last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			status = EXCLUDED.status,
			time_config = EXCLUDED.time_config,
			event_config = EXCLUDED.event_config,
			condition_config = EXCLUDED.condition_config,
			actions = EXCLUDED.actions,
			target = EXCLUDED.target,
			execution = EXCLUDED.execution,
			access_control = EXCLUDED.access_control,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		trigger.ID,
		trigger.Name,
		trigger.Description,
		trigger.Type,
		trigger.Status,
		timeConfigJSON,
		eventConfigJSON,
		conditionConfigJSON,
		actionsJSON,
		targetJSON,
		executionJSON,
		accessControlJSON,
		trigger.Analytics.TotalExecutions,
		trigger.Analytics.SuccessfulExecutions,
		trigger.Analytics.FailedExecutions,
		trigger.Analytics.LastExecutedAt,
		trigger.Analytics.AverageExecutionTime,
		trigger.Analytics.LastError,
		trigger.CreatedAt,
		trigger.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			return persistence.NewTriggerError("Save", trigger.ID, persistence.ErrTriggerAlreadyExists)
		}

		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	return nil
}

// Delete removes a trigger permanently.
func (r *TriggerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM triggers WHERE id = $1", id)
	if err != nil {
		return persistence.NewTriggerError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewTriggerError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewTriggerError("Delete", id, persistence.ErrTriggerNotFound)
	}

	return nil
}

// IncrementAnalytics merges one execution's counters in a single UPDATE.
// The arithmetic on the right-hand side reads the pre-update values, so
// concurrent executions of the same trigger never lose increments.
func (r *TriggerRepository) IncrementAnalytics(ctx context.Context, id string, snap models.AnalyticsSnapshot) error {
	query := `
		UPDATE triggers SET
			total_executions = total_executions + 1,
			successful_executions = successful_executions + $2,
			failed_executions = failed_executions + $3,
			last_executed_at = $4,
			average_execution_time = (average_execution_time * total_executions + $5) / (total_executions + 1),
			last_error = CASE WHEN $6 = '' THEN last_error ELSE $6 END,
			updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		id,
		snap.Succeeded,
		snap.Failed,
		snap.LastExecutedAt,
		float64(snap.DurationMs),
		snap.LastError,
	)
	if err != nil {
		return persistence.NewTriggerError("IncrementAnalytics", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewTriggerError("IncrementAnalytics", id, err)
	}

	if affected == 0 {
		return persistence.NewTriggerError("IncrementAnalytics", id, persistence.ErrTriggerNotFound)
	}

	return nil
}

func (r *TriggerRepository) queryTriggers(ctx context.Context, query string, args ...any) ([]*models.Trigger, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	triggers := make([]*models.Trigger, 0)

	for rows.Next() {
		trigger, err := r.scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}

		triggers = append(triggers, trigger)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating triggers: %w", err)
	}

	return triggers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TriggerRepository) scanTrigger(row rowScanner) (*models.Trigger, error) {
	var (
		trigger             models.Trigger
		timeConfigJSON      []byte
		eventConfigJSON     []byte
		conditionConfigJSON []byte
		actionsJSON         []byte
		targetJSON          []byte
		executionJSON       []byte
		accessControlJSON   []byte
		lastExecutedAt      sql.NullTime
	)

	err := row.Scan(
		&trigger.ID,
		&trigger.Name,
		&trigger.Description,
		&trigger.Type,
		&trigger.Status,
		&timeConfigJSON,
		&eventConfigJSON,
		&conditionConfigJSON,
		&actionsJSON,
		&targetJSON,
		&executionJSON,
		&accessControlJSON,
		&trigger.Analytics.TotalExecutions,
		&trigger.Analytics.SuccessfulExecutions,
		&trigger.Analytics.FailedExecutions,
		&lastExecutedAt,
		&trigger.Analytics.AverageExecutionTime,
		&trigger.Analytics.LastError,
		&trigger.CreatedAt,
		&trigger.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastExecutedAt.Valid {
		t := lastExecutedAt.Time
		trigger.Analytics.LastExecutedAt = &t
	}

	if err := unmarshalNullable(timeConfigJSON, &trigger.TimeConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal time_config: %w", err)
	}

	if err := unmarshalNullable(eventConfigJSON, &trigger.EventConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event_config: %w", err)
	}

	if err := unmarshalNullable(conditionConfigJSON, &trigger.ConditionConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal condition_config: %w", err)
	}

	if err := unmarshalNullable(targetJSON, &trigger.Target); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target: %w", err)
	}

	if err := json.Unmarshal(actionsJSON, &trigger.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	if err := json.Unmarshal(executionJSON, &trigger.Execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}

	if err := json.Unmarshal(accessControlJSON, &trigger.AccessControl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal access_control: %w", err)
	}

	return &trigger, nil
}

func marshalNullable[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}

	return json.Marshal(v)
}

func unmarshalNullable[T any](data []byte, dest **T) error {
	if len(data) == 0 {
		return nil
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	*dest = &value

	return nil
}
