package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/richcrm/automation/pkg/automation"
	"github.com/richcrm/automation/pkg/cmd"
	"github.com/richcrm/automation/pkg/log"
	"github.com/richcrm/automation/pkg/otelhelper"
	"github.com/richcrm/automation/pkg/scheduler"
	cli "github.com/urfave/cli/v3"
)

const defaultSyncInterval = time.Minute

func main() {
	logger := log.WithModule("scheduler")

	command := &cli.Command{
		Name:                  "automation-scheduler",
		Usage:                 "Fire time- and condition-based triggers on their schedule",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scheduler-id",
				Aliases: []string{"id"},
				Usage:   "Custom scheduler ID (auto-generated if not provided)",
				Sources: cli.EnvVars("SCHEDULER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, memory)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.DurationFlag{
				Name:    "sync-interval",
				Usage:   "How often to re-scan the store for schedule changes",
				Value:   defaultSyncInterval,
				Sources: cli.EnvVars("SYNC_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			schedulerID := command.String("scheduler-id")
			if schedulerID == "" {
				schedulerID = fmt.Sprintf("scheduler-%s", uuid.New().String()[:8])
			}

			logger.InfoContext(ctx, "Initializing Automation Scheduler", "scheduler_id", schedulerID)

			tracer, err := otelhelper.NewTracer(ctx, "automation-scheduler")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "scheduler", logger)

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, eventBus)
			clock := clockwork.NewRealClock()

			executor := automation.NewExecutor(
				logger,
				persistence.TriggerRepository(),
				automation.NewMatcher(logger, clock),
				automation.NewDispatcher(logger, registry),
				eventBus,
				clock,
				tracer,
			)

			ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return scheduler.NewScheduler(
				schedulerID,
				persistence.TriggerRepository(),
				executor,
				clock,
				logger,
				command.Duration("sync-interval"),
			).Start(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
