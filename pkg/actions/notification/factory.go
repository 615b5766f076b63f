package notification

import (
	"github.com/redis/go-redis/v9"
	"github.com/richcrm/automation/pkg/protocol"
)

// ActionFactory creates notification actions bound to a Redis client.
type ActionFactory struct {
	client redis.UniversalClient
}

func NewActionFactory(client redis.UniversalClient) *ActionFactory {
	return &ActionFactory{client: client}
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(f.client, config)
}

func (f *ActionFactory) ID() string {
	return "send_notification"
}

func (f *ActionFactory) Name() string {
	return "Send Notification"
}

func (f *ActionFactory) Description() string {
	return "Delivers an in-app notification over Redis to connected CRM clients."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Notification title. Supports templating.",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Notification body. Supports templating.",
				"examples": []string{
					"New enquiry from {{ .data.customer_name }}",
				},
			},
			"recipient": map[string]any{
				"type":        "string",
				"description": "User ID to notify. Empty broadcasts to the shared channel.",
			},
			"severity": map[string]any{
				"type":    "string",
				"default": "info",
				"enum":    []string{"info", "warning", "critical"},
			},
		},
		"required":             []string{"message"},
		"additionalProperties": false,
	}
}
