package cmd

import (
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/richcrm/automation/pkg/actions/email"
	"github.com/richcrm/automation/pkg/actions/messaging"
	"github.com/richcrm/automation/pkg/actions/notification"
	"github.com/richcrm/automation/pkg/actions/record"
	"github.com/richcrm/automation/pkg/actions/webhook"
	"github.com/richcrm/automation/pkg/eventbus"
	"github.com/richcrm/automation/pkg/registry"
)

// NewRegistry builds the action registry with every native action wired
// to its transport: Redis for notifications, SMTP for email, the
// messaging gateway for SMS/WhatsApp and the event bus for record
// commands.
func NewRegistry(logger *slog.Logger, bus eventbus.EventBus) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(webhook.NewActionFactory())
	reg.RegisterAction(email.NewActionFactoryFromEnv())
	reg.RegisterAction(notification.NewActionFactory(newRedisClient()))

	gateway := messaging.GatewayConfigFromEnv()
	reg.RegisterAction(messaging.NewSMSFactory(gateway))
	reg.RegisterAction(messaging.NewWhatsAppFactory(gateway))

	reg.RegisterAction(record.NewAssignUserFactory(bus))
	reg.RegisterAction(record.NewChangeStatusFactory(bus))
	reg.RegisterAction(record.NewUpdateFieldFactory(bus))
	reg.RegisterAction(record.NewCreateTaskFactory(bus))
	reg.RegisterAction(record.NewEscalateFactory(bus))

	return reg
}

func newRedisClient() redis.UniversalClient {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}
