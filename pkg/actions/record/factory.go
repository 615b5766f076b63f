package record

import (
	"github.com/richcrm/automation/pkg/eventbus"
	"github.com/richcrm/automation/pkg/protocol"
)

// ActionFactory creates record command actions for one command kind.
type ActionFactory struct {
	bus         eventbus.EventBus
	id          string
	name        string
	description string
	required    []string
	properties  map[string]any
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(f.bus, f.id, f.required, config)
}

func (f *ActionFactory) ID() string          { return f.id }
func (f *ActionFactory) Name() string        { return f.name }
func (f *ActionFactory) Description() string { return f.description }

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           f.properties,
		"required":             f.required,
		"additionalProperties": false,
	}
}

// NewAssignUserFactory creates the assign_user factory.
func NewAssignUserFactory(bus eventbus.EventBus) *ActionFactory {
	return &ActionFactory{
		bus:         bus,
		id:          "assign_user",
		name:        "Assign User",
		description: "Assigns the record to a user or team.",
		required:    []string{"user_id"},
		properties: map[string]any{
			"user_id": map[string]any{
				"type":        "string",
				"description": "User to assign. Supports templating.",
			},
			"team": map[string]any{
				"type":        "string",
				"description": "Optional team for round-robin assignment.",
			},
		},
	}
}

// NewChangeStatusFactory creates the change_status factory.
func NewChangeStatusFactory(bus eventbus.EventBus) *ActionFactory {
	return &ActionFactory{
		bus:         bus,
		id:          "change_status",
		name:        "Change Status",
		description: "Moves the record to a new status.",
		required:    []string{"status"},
		properties: map[string]any{
			"status": map[string]any{
				"type":        "string",
				"description": "Target status. Supports templating.",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "Optional note recorded with the transition.",
			},
		},
	}
}

// NewUpdateFieldFactory creates the update_field factory.
func NewUpdateFieldFactory(bus eventbus.EventBus) *ActionFactory {
	return &ActionFactory{
		bus:         bus,
		id:          "update_field",
		name:        "Update Field",
		description: "Sets one field of the record to a new value.",
		required:    []string{"field", "value"},
		properties: map[string]any{
			"field": map[string]any{
				"type":        "string",
				"description": "Field name to update.",
			},
			"value": map[string]any{
				"type":        "string",
				"description": "New value. Supports templating.",
			},
		},
	}
}

// NewCreateTaskFactory creates the create_task factory.
func NewCreateTaskFactory(bus eventbus.EventBus) *ActionFactory {
	return &ActionFactory{
		bus:         bus,
		id:          "create_task",
		name:        "Create Task",
		description: "Creates a follow-up task linked to the record.",
		required:    []string{"title"},
		properties: map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Task title. Supports templating.",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Task details. Supports templating.",
			},
			"assignee": map[string]any{
				"type":        "string",
				"description": "User the task is assigned to.",
			},
			"due_in_days": map[string]any{
				"type":        "integer",
				"description": "Days until the task is due.",
				"minimum":     0,
			},
		},
	}
}

// NewEscalateFactory creates the escalate factory.
func NewEscalateFactory(bus eventbus.EventBus) *ActionFactory {
	return &ActionFactory{
		bus:         bus,
		id:          "escalate",
		name:        "Escalate",
		description: "Escalates the record to a manager or senior user.",
		required:    []string{"escalate_to"},
		properties: map[string]any{
			"escalate_to": map[string]any{
				"type":        "string",
				"description": "User or role receiving the escalation.",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "Why the record is escalated. Supports templating.",
			},
		},
	}
}
