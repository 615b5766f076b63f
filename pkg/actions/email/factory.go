package email

import (
	"os"

	"github.com/richcrm/automation/pkg/protocol"
)

// ActionFactory creates email actions bound to one SMTP relay.
type ActionFactory struct {
	smtpConfig SMTPConfig
}

func NewActionFactory(smtpConfig SMTPConfig) *ActionFactory {
	return &ActionFactory{smtpConfig: smtpConfig}
}

// NewActionFactoryFromEnv reads the relay settings from SMTP_* variables.
func NewActionFactoryFromEnv() *ActionFactory {
	return NewActionFactory(SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
		FromName: os.Getenv("SMTP_FROM_NAME"),
	})
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(f.smtpConfig, config)
}

func (f *ActionFactory) ID() string {
	return "send_email"
}

func (f *ActionFactory) Name() string {
	return "Send Email"
}

func (f *ActionFactory) Description() string {
	return "Sends a templated email through the configured SMTP relay."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient address. Supports templating.",
				"examples": []string{
					"sales@example.com",
					"{{ .data.customer_email }}",
				},
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line. Supports templating.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Plain text body. Supports templating.",
			},
			"html_body": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "Optional HTML body. Supports templating.",
			},
		},
		"required":             []string{"to", "subject"},
		"additionalProperties": false,
	}
}
