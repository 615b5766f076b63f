// Package models defines the core domain models for CRM automation triggers.
package models

import "time"

// TriggerType selects which configuration block of a trigger is active.
type TriggerType string

const (
	TriggerTypeTimeBased      TriggerType = "time_based"
	TriggerTypeEventBased     TriggerType = "event_based"
	TriggerTypeConditionBased TriggerType = "condition_based"
)

// TriggerStatus represents the lifecycle state of a trigger.
type TriggerStatus string

const (
	TriggerStatusActive   TriggerStatus = "active"   // Eligible to fire
	TriggerStatusInactive TriggerStatus = "inactive" // Paused by an operator
	TriggerStatusDraft    TriggerStatus = "draft"    // Editable, never fires
)

// Frequency describes how often a time-based trigger recurs.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom" // Uses CronExpression
)

// LogicalOperator tags a condition clause inside a condition-based trigger.
// The evaluation engine currently applies AND across all clauses and does
// not branch on this tag.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// Trigger is the central automation entity: a definition of when to fire
// and which actions to run.
type Trigger struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"         validate:"required,min=3"`
	Description string        `json:"description"`
	Type        TriggerType   `json:"trigger_type" validate:"required,oneof=time_based event_based condition_based"`
	Status      TriggerStatus `json:"status"       validate:"required,oneof=active inactive draft"`

	// Exactly one of the three config blocks is meaningful, selected by Type.
	TimeConfig      *TimeConfig      `json:"time_config,omitempty"`
	EventConfig     *EventConfig     `json:"event_config,omitempty"`
	ConditionConfig *ConditionConfig `json:"condition_config,omitempty"`

	Actions       []Action        `json:"actions"`
	Target        *Target         `json:"target,omitempty"`
	Execution     ExecutionPolicy `json:"execution"`
	Analytics     Analytics       `json:"analytics"`
	AccessControl AccessControl   `json:"access_control"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the trigger may fire at all. Drafts and
// inactive triggers are inert regardless of other configuration.
func (t *Trigger) IsActive() bool {
	return t.Status == TriggerStatusActive
}

// TimeConfig configures a time_based trigger. Recurrence itself is driven
// by the scheduler binary; the engine only checks the start/end window.
type TimeConfig struct {
	Frequency      Frequency  `json:"frequency" validate:"required,oneof=once daily weekly monthly custom"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	TimeOfDay      string     `json:"time_of_day,omitempty"` // "15:04"
	DaysOfWeek     []string   `json:"days_of_week,omitempty"`
	Timezone       string     `json:"timezone,omitempty"`
	CronExpression string     `json:"cron_expression,omitempty"`
}

// EventConfig configures an event_based trigger.
type EventConfig struct {
	Event        string      `json:"event" validate:"required"`
	Conditions   []Condition `json:"conditions"`
	DelayMinutes int         `json:"delay" validate:"min=0"`
}

// ConditionConfig configures a condition_based trigger.
type ConditionConfig struct {
	Conditions []ConditionClause `json:"conditions"`
	Frequency  string            `json:"evaluation_frequency,omitempty" validate:"omitempty,oneof=realtime hourly daily"`
}

// ActionType identifies which handler executes an action.
type ActionType string

const (
	ActionSendNotification ActionType = "send_notification"
	ActionSendEmail        ActionType = "send_email"
	ActionSendSMS          ActionType = "send_sms"
	ActionSendWhatsApp     ActionType = "send_whatsapp"
	ActionAssignUser       ActionType = "assign_user"
	ActionChangeStatus     ActionType = "change_status"
	ActionCreateTask       ActionType = "create_task"
	ActionEscalate         ActionType = "escalate"
	ActionUpdateField      ActionType = "update_field"
	ActionWebhookCall      ActionType = "webhook_call"
)

// Action is one entry in a trigger's ordered action list.
type Action struct {
	Type    ActionType     `json:"action_type" validate:"required"`
	Config  map[string]any `json:"action_config"`
	Order   int            `json:"order"`
	Enabled bool           `json:"enabled"`
}

// Target describes which domain records a time/condition-based trigger
// should scan. Consumed by the scheduler, not by the execution engine.
type Target struct {
	EntityType string      `json:"entity_type"`
	Filters    []Condition `json:"filters,omitempty"`
	Limit      int         `json:"limit,omitempty"`
}

// ExecutionPolicy carries execution knobs. Only StopOnError is honored by
// the in-process dispatcher; the rest are contracts for the external
// scheduler/queue that invokes the engine.
type ExecutionPolicy struct {
	MaxRetries        int  `json:"max_retries" validate:"min=0"`
	RetryDelayMinutes int  `json:"retry_delay" validate:"min=0"`
	TimeoutSeconds    int  `json:"timeout"     validate:"min=0"`
	Concurrent        bool `json:"concurrent"`
	StopOnError       bool `json:"stop_on_error"`
}

// AccessControl holds creator/updater references and allow-lists.
// Enforcement lives in the HTTP layer, outside the engine.
type AccessControl struct {
	CreatedBy    string   `json:"created_by,omitempty"`
	UpdatedBy    string   `json:"updated_by,omitempty"`
	AllowedRoles []string `json:"allowed_roles,omitempty"`
	AllowedUsers []string `json:"allowed_users,omitempty"`
}
