package messaging

import (
	"os"

	"github.com/richcrm/automation/pkg/protocol"
)

// ActionFactory creates messaging actions for one channel.
type ActionFactory struct {
	gateway GatewayConfig
	channel string
	id      string
	name    string
}

// NewSMSFactory creates the send_sms factory.
func NewSMSFactory(gateway GatewayConfig) *ActionFactory {
	return &ActionFactory{
		gateway: gateway,
		channel: ChannelSMS,
		id:      "send_sms",
		name:    "Send SMS",
	}
}

// NewWhatsAppFactory creates the send_whatsapp factory.
func NewWhatsAppFactory(gateway GatewayConfig) *ActionFactory {
	return &ActionFactory{
		gateway: gateway,
		channel: ChannelWhatsApp,
		id:      "send_whatsapp",
		name:    "Send WhatsApp",
	}
}

// GatewayConfigFromEnv reads the gateway settings from MESSAGING_* variables.
func GatewayConfigFromEnv() GatewayConfig {
	return GatewayConfig{
		URL:    os.Getenv("MESSAGING_GATEWAY_URL"),
		APIKey: os.Getenv("MESSAGING_API_KEY"),
	}
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(f.gateway, f.channel, config)
}

func (f *ActionFactory) ID() string {
	return f.id
}

func (f *ActionFactory) Name() string {
	return f.name
}

func (f *ActionFactory) Description() string {
	return "Sends a templated message to the customer through the " + f.channel + " gateway."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient phone number. Supports templating.",
				"examples": []string{
					"{{ .data.customer_phone }}",
				},
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message body. Supports templating.",
			},
		},
		"required":             []string{"to", "message"},
		"additionalProperties": false,
	}
}
