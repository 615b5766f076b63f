package webhook

import (
	"github.com/richcrm/automation/pkg/protocol"
)

// ActionFactory creates webhook call actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) ID() string {
	return "webhook_call"
}

func (f *ActionFactory) Name() string {
	return "Webhook Call"
}

func (f *ActionFactory) Description() string {
	return "Sends an HTTP request to an external system. URL, headers and body support templating."
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to call. Supports templating with event data.",
				"examples": []string{
					"https://hooks.example.com/crm",
					"https://api.example.com/enquiries/{{ .data.enquiry_id }}",
				},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method to use",
				"default":     "POST",
				"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "HTTP headers to include. Values support templating.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"body": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "Request body content. Supports templating for dynamic JSON or text.",
				"examples": []string{
					`{"event": "{{ .event }}", "customer": "{{ .data.customer_name }}"}`,
				},
			},
			"retry": map[string]any{
				"type":        "object",
				"description": "Retry configuration for failed requests",
				"properties": map[string]any{
					"attempts": map[string]any{
						"type":    "integer",
						"minimum": 1,
						"maximum": 5,
					},
					"delay": map[string]any{
						"type":        "integer",
						"description": "Delay between attempts in milliseconds",
						"minimum":     0,
					},
				},
			},
		},
		"required":             []string{"url"},
		"additionalProperties": false,
	}
}
