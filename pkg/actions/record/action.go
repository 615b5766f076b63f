// Package record implements the actions that mutate CRM records:
// assign_user, change_status, update_field, create_task and escalate.
// They do not touch the CRM database directly; each publishes a
// RecordCommand on the command topic and the CRM core applies it.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/richcrm/automation/pkg/eventbus"
	"github.com/richcrm/automation/pkg/events"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/template"
)

// ErrMissingConfigKey is returned when a required config key is absent.
var ErrMissingConfigKey = errors.New("missing required configuration key")

// Action publishes one record command per execution.
type Action struct {
	bus     eventbus.EventBus
	Command string
	Payload map[string]any
}

// NewAction creates a record command action. Required keys are validated
// here so a misconfigured trigger fails at save time, not at runtime.
func NewAction(bus eventbus.EventBus, command string, required []string, config map[string]any) (*Action, error) {
	payload := make(map[string]any, len(config))
	for key, value := range config {
		payload[key] = value
	}

	for _, key := range required {
		value, ok := payload[key].(string)
		if !ok || value == "" {
			return nil, fmt.Errorf("%w: '%s' for command %s", ErrMissingConfigKey, key, command)
		}
	}

	return &Action{
		bus:     bus,
		Command: command,
		Payload: payload,
	}, nil
}

// Execute renders the payload against the execution context and publishes
// the command.
func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "record_action", "command", a.Command)

	payload, err := a.renderPayload(execCtx)
	if err != nil {
		return nil, err
	}

	entityType, _ := execCtx.Data["entity_type"].(string)
	entityID, _ := execCtx.Data["entity_id"].(string)

	command := events.RecordCommand{
		BaseEvent: events.BaseEvent{
			ID:        a.bus.GenerateID(),
			Type:      events.RecordCommandEventType,
			Timestamp: time.Now().UTC(),
		},
		Command:    a.Command,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
	}

	err = a.bus.Publish(ctx, entityID, command)
	if err != nil {
		return nil, fmt.Errorf("failed to publish record command: %w", err)
	}

	logger.InfoContext(ctx, "Record command published",
		"entity_type", entityType,
		"entity_id", entityID)

	return map[string]any{
		"command":     a.Command,
		"command_id":  command.ID,
		"entity_type": entityType,
		"entity_id":   entityID,
		"payload":     payload,
	}, nil
}

// renderPayload templates every string value in the config bag; non-string
// values pass through unchanged.
func (a *Action) renderPayload(execCtx models.ExecutionContext) (map[string]any, error) {
	payload := make(map[string]any, len(a.Payload))

	for key, value := range a.Payload {
		str, ok := value.(string)
		if !ok {
			payload[key] = value

			continue
		}

		rendered, err := template.RenderWithContext(str, execCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render payload key '%s': %w", key, err)
		}

		payload[key] = rendered
	}

	return payload, nil
}
