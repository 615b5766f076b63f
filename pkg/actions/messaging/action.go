// Package messaging implements the send_sms and send_whatsapp actions.
// Both deliver through the same HTTP messaging gateway and differ only
// in the channel field of the payload.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/template"
)

const requestTimeout = 15 * time.Second

const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

var (
	// ErrMessagingRecipientInvalid is returned when 'to' is missing from the config.
	ErrMessagingRecipientInvalid = errors.New("invalid message recipient")
	// ErrMessagingBodyInvalid is returned when 'message' is missing from the config.
	ErrMessagingBodyInvalid = errors.New("invalid message body")
	// ErrGatewayNotConfigured is returned when no gateway URL is set.
	ErrGatewayNotConfigured = errors.New("messaging gateway is not configured")
	// ErrGatewayRejected is returned on a non-2xx gateway response.
	ErrGatewayRejected = errors.New("messaging gateway rejected the message")
)

// GatewayConfig points at the outbound messaging gateway.
type GatewayConfig struct {
	URL    string
	APIKey string
}

// Enabled reports whether a gateway URL is configured.
func (c GatewayConfig) Enabled() bool {
	return c.URL != ""
}

// Action sends one templated message over a fixed channel.
type Action struct {
	gateway GatewayConfig
	client  *http.Client

	Channel string
	To      string
	Message string
}

// NewAction creates a messaging action from configuration.
func NewAction(gateway GatewayConfig, channel string, config map[string]any) (*Action, error) {
	to, ok := config["to"].(string)
	if !ok || to == "" {
		return nil, fmt.Errorf("missing or invalid 'to' in configuration: %w", ErrMessagingRecipientInvalid)
	}

	message, ok := config["message"].(string)
	if !ok || message == "" {
		return nil, fmt.Errorf("missing or invalid 'message' in configuration: %w", ErrMessagingBodyInvalid)
	}

	return &Action{
		gateway: gateway,
		client:  &http.Client{Timeout: requestTimeout},
		Channel: channel,
		To:      to,
		Message: message,
	}, nil
}

// Execute renders the recipient and body and posts them to the gateway.
func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "messaging_action", "channel", a.Channel)

	if !a.gateway.Enabled() {
		return nil, ErrGatewayNotConfigured
	}

	to, err := template.RenderString(a.To, execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render recipient template: %w", err)
	}

	message, err := template.RenderString(a.Message, execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render message template: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"channel": a.Channel,
		"to":      to,
		"message": message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.gateway.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if a.gateway.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.gateway.APIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, string(respBody))
	}

	var gatewayResult any

	err = json.Unmarshal(respBody, &gatewayResult)
	if err != nil {
		gatewayResult = string(respBody)
	}

	logger.InfoContext(ctx, "Message sent", "to", to)

	return map[string]any{
		"channel":  a.Channel,
		"to":       to,
		"response": gatewayResult,
	}, nil
}
