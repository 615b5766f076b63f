// Package main provides the automation API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/jonboulle/clockwork"
	"github.com/richcrm/automation/pkg/automation"
	"github.com/richcrm/automation/pkg/eventbus"
	"github.com/richcrm/automation/pkg/otelhelper"
	"github.com/richcrm/automation/pkg/persistence"
	"github.com/richcrm/automation/pkg/registry"
	"github.com/richcrm/automation/pkg/services"
	"github.com/richcrm/automation/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App(ctx context.Context) (*fiber.App, error) {
	tracer, err := otelhelper.NewTracer(ctx, "automation-api")
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()

	executor := automation.NewExecutor(
		a.logger,
		a.persistence.TriggerRepository(),
		automation.NewMatcher(a.logger, clock),
		automation.NewDispatcher(a.logger, a.registry),
		a.eventBus,
		clock,
		tracer,
	)

	triggerService := services.NewTrigger(a.persistence, a.registry, a.eventBus)
	executionService := services.NewExecution(executor, a.persistence)

	handlers := web.NewAPIHandlers(triggerService, executionService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("RichCRM Automation API")
	})

	triggers := app.Group("/triggers")
	triggers.Get("/", handlers.GetTriggers)
	triggers.Post("/", handlers.CreateTrigger)
	triggers.Get("/:id", handlers.GetTrigger)
	triggers.Put("/:id", handlers.UpdateTrigger)
	triggers.Delete("/:id", handlers.DeleteTrigger)
	triggers.Post("/:id/activate", handlers.ActivateTrigger)
	triggers.Post("/:id/deactivate", handlers.DeactivateTrigger)
	triggers.Post("/:id/execute", handlers.ExecuteTrigger)
	triggers.Post("/:id/test", handlers.TestTrigger)
	triggers.Get("/:id/analytics", handlers.GetTriggerAnalytics)

	app.Get("/actions", handlers.GetAvailableActions)
	app.Get("/health", handlers.HealthCheck)

	return app, nil
}

func (a *API) Start(ctx context.Context, port int) error {
	app, err := a.App(ctx)
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
