package models

// ExecutionContext is the runtime state a trigger reacts to: the domain
// event that occurred and the data payload of the affected record. It is
// supplied by the caller and never persisted.
type ExecutionContext struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// FieldValue returns the payload value for a condition field, or nil when
// the field is absent.
func (c ExecutionContext) FieldValue(field string) any {
	if c.Data == nil {
		return nil
	}

	return c.Data[field]
}

// ActionResult is the per-action outcome of one trigger execution.
type ActionResult struct {
	ActionType ActionType `json:"action_type"`
	Success    bool       `json:"success"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	DurationMs int64      `json:"duration_ms"`
}

// ConditionCheck is the per-condition diagnostic produced by a dry run of
// an event-based trigger.
type ConditionCheck struct {
	Field       string   `json:"field"`
	Operator    Operator `json:"operator"`
	Value       any      `json:"value"`
	ActualValue any      `json:"actual_value"`
	Result      bool     `json:"result"`
}
