// Package web provides HTTP request and response types for the trigger API.
package web

import "github.com/richcrm/automation/pkg/models"

// CreateTriggerRequest represents the request body for creating a new trigger.
type CreateTriggerRequest struct {
	Name        string               `json:"name"         validate:"required,min=3"`
	Description string               `json:"description"`
	Type        models.TriggerType   `json:"trigger_type" validate:"required,oneof=time_based event_based condition_based"`
	Status      models.TriggerStatus `json:"status"       validate:"omitempty,oneof=active inactive draft"`

	TimeConfig      *models.TimeConfig      `json:"time_config,omitempty"`
	EventConfig     *models.EventConfig     `json:"event_config,omitempty"`
	ConditionConfig *models.ConditionConfig `json:"condition_config,omitempty"`

	Actions   []models.Action        `json:"actions"`
	Target    *models.Target         `json:"target,omitempty"`
	Execution models.ExecutionPolicy `json:"execution"`
	CreatedBy string                 `json:"created_by,omitempty"`
}

// ToModel converts the request into a trigger for the service layer.
func (r CreateTriggerRequest) ToModel() *models.Trigger {
	return &models.Trigger{
		Name:            r.Name,
		Description:     r.Description,
		Type:            r.Type,
		Status:          r.Status,
		TimeConfig:      r.TimeConfig,
		EventConfig:     r.EventConfig,
		ConditionConfig: r.ConditionConfig,
		Actions:         r.Actions,
		Target:          r.Target,
		Execution:       r.Execution,
		AccessControl:   models.AccessControl{CreatedBy: r.CreatedBy},
	}
}

// UpdateTriggerRequest represents the request body for updating an existing
// trigger. The whole definition is replaced; analytics and timestamps are
// preserved server-side.
type UpdateTriggerRequest struct {
	Name        string               `json:"name"         validate:"required,min=3"`
	Description string               `json:"description"`
	Type        models.TriggerType   `json:"trigger_type" validate:"required,oneof=time_based event_based condition_based"`
	Status      models.TriggerStatus `json:"status"       validate:"omitempty,oneof=active inactive draft"`

	TimeConfig      *models.TimeConfig      `json:"time_config,omitempty"`
	EventConfig     *models.EventConfig     `json:"event_config,omitempty"`
	ConditionConfig *models.ConditionConfig `json:"condition_config,omitempty"`

	Actions   []models.Action        `json:"actions"`
	Target    *models.Target         `json:"target,omitempty"`
	Execution models.ExecutionPolicy `json:"execution"`
	UpdatedBy string                 `json:"updated_by,omitempty"`
}

// ToModel converts the request into a trigger for the service layer.
func (r UpdateTriggerRequest) ToModel() *models.Trigger {
	return &models.Trigger{
		Name:            r.Name,
		Description:     r.Description,
		Type:            r.Type,
		Status:          r.Status,
		TimeConfig:      r.TimeConfig,
		EventConfig:     r.EventConfig,
		ConditionConfig: r.ConditionConfig,
		Actions:         r.Actions,
		Target:          r.Target,
		Execution:       r.Execution,
		AccessControl:   models.AccessControl{UpdatedBy: r.UpdatedBy},
	}
}

// AnalyticsResponse is the analytics document plus the derived success
// rate over all action runs.
type AnalyticsResponse struct {
	models.Analytics

	SuccessRate float64 `json:"success_rate"`
}

// ExecuteTriggerRequest carries the execution context for manual runs and
// dry runs.
type ExecuteTriggerRequest struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// ToExecutionContext converts the request into an execution context.
func (r ExecuteTriggerRequest) ToExecutionContext() models.ExecutionContext {
	data := r.Data
	if data == nil {
		data = map[string]any{}
	}

	return models.ExecutionContext{
		Event: r.Event,
		Data:  data,
	}
}
