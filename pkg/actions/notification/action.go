// Package notification implements the send_notification action: in-app
// notifications delivered through Redis so connected CRM clients pick
// them up in real time.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/template"
)

const (
	// DefaultChannel receives notifications when no recipient is configured.
	DefaultChannel = "richcrm:notifications"

	// inboxPrefix keys the per-recipient persistent inbox list.
	inboxPrefix = "richcrm:inbox:"

	inboxTTL = 30 * 24 * time.Hour
)

// ErrNotificationMessageInvalid is returned when the message template is missing.
var ErrNotificationMessageInvalid = errors.New("invalid notification message")

// Action publishes a notification on the live channel and appends it to
// the recipient's inbox list.
type Action struct {
	client    redis.UniversalClient
	Title     string
	Message   string
	Recipient string
	Severity  string
}

// NewAction creates a notification action from configuration.
func NewAction(client redis.UniversalClient, config map[string]any) (*Action, error) {
	message, ok := config["message"].(string)
	if !ok || message == "" {
		return nil, fmt.Errorf("missing or invalid 'message' in configuration: %w", ErrNotificationMessageInvalid)
	}

	title, _ := config["title"].(string)
	recipient, _ := config["recipient"].(string)

	severity, _ := config["severity"].(string)
	if severity == "" {
		severity = "info"
	}

	return &Action{
		client:    client,
		Title:     title,
		Message:   message,
		Recipient: recipient,
		Severity:  severity,
	}, nil
}

// Execute renders the notification and delivers it over Redis.
func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "notification_action")

	message, err := template.RenderString(a.Message, execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render message template: %w", err)
	}

	title, err := template.RenderString(a.Title, execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render title template: %w", err)
	}

	recipient, err := template.RenderString(a.Recipient, execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render recipient template: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"title":     title,
		"message":   message,
		"recipient": recipient,
		"severity":  a.Severity,
		"event":     execCtx.Event,
		"sent_at":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize notification: %w", err)
	}

	channel := DefaultChannel
	if recipient != "" {
		channel = DefaultChannel + ":" + recipient
	}

	err = a.client.Publish(ctx, channel, payload).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to publish notification: %w", err)
	}

	if recipient != "" {
		inboxKey := inboxPrefix + recipient

		err = a.client.LPush(ctx, inboxKey, payload).Err()
		if err != nil {
			return nil, fmt.Errorf("failed to store notification: %w", err)
		}

		// Refreshing the TTL on every write keeps active inboxes alive.
		err = a.client.Expire(ctx, inboxKey, inboxTTL).Err()
		if err != nil {
			logger.WarnContext(ctx, "Failed to refresh inbox TTL", "recipient", recipient, "error", err)
		}
	}

	logger.InfoContext(ctx, "Notification sent", "channel", channel, "severity", a.Severity)

	return map[string]any{
		"channel":   channel,
		"recipient": recipient,
		"severity":  a.Severity,
	}, nil
}
