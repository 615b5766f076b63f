// Package events defines the CRM domain events triggers listen for and the
// lifecycle events the automation service publishes.
package events

import (
	"time"
)

type EventType string

// Kafka topics.
const Topic = "richcrm.automation.events" // Trigger lifecycle events
const DomainTopic = "richcrm.crm.events"  // CRM domain events consumed by the dispatcher
const CommandTopic = "richcrm.crm.commands" // Record mutation commands emitted by actions

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

// Domain event names an event-based trigger can listen for.
const (
	DomainEnquiryCreated    = "enquiry_created"
	DomainEnquiryUpdated    = "enquiry_updated"
	DomainStatusChanged     = "status_changed"
	DomainAssigned          = "assigned"
	DomainComplaintCreated  = "complaint_created"
	DomainJobCreated        = "job_created"
	DomainAMCExpiring       = "amc_expiring"
	DomainPaymentReceived   = "payment_received"
	DomainFollowUpDue       = "follow_up_due"
)

// DomainEvents lists every event name accepted in an eventConfig.
var DomainEvents = []string{
	DomainEnquiryCreated,
	DomainEnquiryUpdated,
	DomainStatusChanged,
	DomainAssigned,
	DomainComplaintCreated,
	DomainJobCreated,
	DomainAMCExpiring,
	DomainPaymentReceived,
	DomainFollowUpDue,
}

// IsDomainEvent reports whether name is a known domain event.
func IsDomainEvent(name string) bool {
	for _, e := range DomainEvents {
		if e == name {
			return true
		}
	}

	return false
}

const (
	TriggerCreatedEventType  EventType = "trigger.created"
	TriggerUpdatedEventType  EventType = "trigger.updated"
	TriggerDeletedEventType  EventType = "trigger.deleted"
	TriggerExecutedEventType EventType = "trigger.executed"
	RecordCommandEventType   EventType = "record.command"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DomainEvent is a CRM profile mutation observed on the domain topic. Its
// Name and Data become the trigger's execution context.
type DomainEvent struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type TriggerCreated struct {
	BaseEvent

	TriggerID   string `json:"trigger_id"`
	TriggerName string `json:"trigger_name"`
}

func (e TriggerCreated) GetType() EventType { return TriggerCreatedEventType }

type TriggerUpdated struct {
	BaseEvent

	TriggerID string `json:"trigger_id"`
}

func (e TriggerUpdated) GetType() EventType { return TriggerUpdatedEventType }

type TriggerDeleted struct {
	BaseEvent

	TriggerID string `json:"trigger_id"`
}

func (e TriggerDeleted) GetType() EventType { return TriggerDeletedEventType }

// TriggerExecuted is published after every orchestrated execution with the
// aggregate counts of the run.
type TriggerExecuted struct {
	BaseEvent

	TriggerID   string `json:"trigger_id"`
	TriggerName string `json:"trigger_name"`
	Event       string `json:"event"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e TriggerExecuted) GetType() EventType { return TriggerExecutedEventType }

// RecordCommand asks the CRM core to mutate a record. Emitted by the
// assign_user, change_status, update_field, create_task and escalate
// action handlers; applying it is the CRM core's responsibility.
type RecordCommand struct {
	BaseEvent

	Command    string         `json:"command"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func (e RecordCommand) GetType() EventType { return RecordCommandEventType }
