package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/persistence"
)

const triggerFileMode = 0o600

// TriggerRepository stores each trigger as one JSON document under
// <root>/triggers. A process-wide mutex serializes writes so analytics
// increments never race within a single process.
type TriggerRepository struct {
	root string
	mu   sync.Mutex
}

// NewTriggerRepository creates a new trigger repository.
func NewTriggerRepository(root string) *TriggerRepository {
	return &TriggerRepository{root: root}
}

func (tr *TriggerRepository) dir() string {
	return filepath.Join(tr.root, "triggers")
}

func (tr *TriggerRepository) path(id string) string {
	return filepath.Join(tr.dir(), id+".json")
}

// ListTriggers returns paginated and filtered triggers with in-memory operations.
func (tr *TriggerRepository) ListTriggers(ctx context.Context, opts persistence.ListTriggersOptions) (*persistence.ListTriggersResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	all, err := tr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Trigger, 0, len(all))

	for _, trigger := range all {
		if opts.Type != nil && trigger.Type != *opts.Type {
			continue
		}

		if opts.Status != nil && trigger.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, trigger)
	}

	tr.sortTriggers(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))

	startIdx := opts.Offset
	if startIdx >= len(filtered) {
		return &persistence.ListTriggersResult{
			Triggers:    make([]*models.Trigger, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	endIdx := min(opts.Offset+opts.Limit, len(filtered))

	return &persistence.ListTriggersResult{
		Triggers:    filtered[startIdx:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

func (tr *TriggerRepository) sortTriggers(triggers []*models.Trigger, sortBy, sortOrder string) {
	sort.Slice(triggers, func(i, j int) bool {
		var less bool

		switch sortBy {
		case "updated_at":
			less = triggers[i].UpdatedAt.Before(triggers[j].UpdatedAt)
		case "name":
			less = triggers[i].Name < triggers[j].Name
		default:
			less = triggers[i].CreatedAt.Before(triggers[j].CreatedAt)
		}

		if sortOrder == "desc" {
			return !less
		}

		return less
	})
}

// GetByID returns (nil, nil) when the trigger file does not exist.
func (tr *TriggerRepository) GetByID(_ context.Context, id string) (*models.Trigger, error) {
	data, err := os.ReadFile(tr.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.NewTriggerError("GetByID", id, err)
	}

	var trigger models.Trigger
	if err := json.Unmarshal(data, &trigger); err != nil {
		return nil, persistence.NewTriggerError("GetByID", id, err)
	}

	return &trigger, nil
}

func (tr *TriggerRepository) GetByName(ctx context.Context, name string) (*models.Trigger, error) {
	all, err := tr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, trigger := range all {
		if trigger.Name == name {
			return trigger, nil
		}
	}

	return nil, nil
}

func (tr *TriggerRepository) ListByEvent(ctx context.Context, event string) ([]*models.Trigger, error) {
	all, err := tr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Trigger, 0)

	for _, trigger := range all {
		if !trigger.IsActive() || trigger.Type != models.TriggerTypeEventBased {
			continue
		}

		if trigger.EventConfig != nil && trigger.EventConfig.Event == event {
			matched = append(matched, trigger)
		}
	}

	return matched, nil
}

func (tr *TriggerRepository) ListActiveByType(ctx context.Context, triggerType models.TriggerType) ([]*models.Trigger, error) {
	all, err := tr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Trigger, 0)

	for _, trigger := range all {
		if trigger.IsActive() && trigger.Type == triggerType {
			matched = append(matched, trigger)
		}
	}

	return matched, nil
}

func (tr *TriggerRepository) Save(_ context.Context, trigger *models.Trigger) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	return tr.write(trigger)
}

func (tr *TriggerRepository) Delete(_ context.Context, id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	err := os.Remove(tr.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewTriggerError("Delete", id, persistence.ErrTriggerNotFound)
		}

		return persistence.NewTriggerError("Delete", id, err)
	}

	return nil
}

// IncrementAnalytics applies the snapshot under the repository lock, which
// is the file-store equivalent of the SQL store's atomic UPDATE.
func (tr *TriggerRepository) IncrementAnalytics(ctx context.Context, id string, snap models.AnalyticsSnapshot) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	trigger, err := tr.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if trigger == nil {
		return persistence.NewTriggerError("IncrementAnalytics", id, persistence.ErrTriggerNotFound)
	}

	trigger.Analytics = snap.Apply(trigger.Analytics)
	trigger.UpdatedAt = snap.LastExecutedAt

	return tr.write(trigger)
}

func (tr *TriggerRepository) loadAll(ctx context.Context) ([]*models.Trigger, error) {
	root := os.DirFS(tr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list trigger files: %w", err)
	}

	triggers := make([]*models.Trigger, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		triggerID := file[:len(file)-5] // Remove .json extension

		trigger, err := tr.GetByID(ctx, triggerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load trigger %s: %w", triggerID, err)
		}

		if trigger != nil {
			triggers = append(triggers, trigger)
		}
	}

	return triggers, nil
}

func (tr *TriggerRepository) write(trigger *models.Trigger) error {
	if err := os.MkdirAll(tr.dir(), 0o750); err != nil {
		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	data, err := json.MarshalIndent(trigger, "", "  ")
	if err != nil {
		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	if err := os.WriteFile(tr.path(trigger.ID), data, triggerFileMode); err != nil {
		return persistence.NewTriggerError("Save", trigger.ID, err)
	}

	return nil
}
