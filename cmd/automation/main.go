package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fieldopshq/fieldops-be/internal/core/actions"
	"github.com/fieldopshq/fieldops-be/internal/core/email"
	"github.com/fieldopshq/fieldops-be/internal/core/events"
	"github.com/fieldopshq/fieldops-be/internal/core/sms"
	"github.com/fieldopshq/fieldops-be/internal/core/workflow"
	automationrepos "github.com/fieldopshq/fieldops-be/internal/modules/automation/repositories"
	fieldrepos "github.com/fieldopshq/fieldops-be/internal/modules/fieldservice/repositories"
	fieldservices "github.com/fieldopshq/fieldops-be/internal/modules/fieldservice/services"
	"github.com/fieldopshq/fieldops-be/internal/shared/config"
	"github.com/fieldopshq/fieldops-be/internal/shared/database"
	"github.com/fieldopshq/fieldops-be/internal/shared/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env)
	log.Info().Str("port", cfg.Port).Msg("🚀 Starting fieldops automation engine")

	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	// Repositories
	workflowRepo := automationrepos.NewWorkflowRepo(db.GORM)
	executionRepo := automationrepos.NewExecutionRepo(db.GORM)
	scheduledJobRepo := automationrepos.NewScheduledJobRepo(db.GORM)
	jobRepo := fieldrepos.NewJobRepo(db.GORM)

	// Event bus
	bus := events.NewBus(executionRepo, cfg.IdempotencyWindow)

	// Field-service state machine feeds the bus
	jobService := fieldservices.NewJobService(jobRepo, bus)

	// Delivery channels
	emailService := email.NewService(buildEmailProvider(cfg))
	smsService := sms.NewService(sms.NewConsoleProvider())

	// Engine + scheduler
	scheduler := workflow.NewScheduler(scheduledJobRepo, workflowRepo, executionRepo, workflow.SchedulerConfig{
		PollInterval: time.Duration(cfg.SchedulerPollSeconds) * time.Second,
		BatchSize:    cfg.SchedulerBatchSize,
	})

	registry := workflow.NewRegistry()
	engine := workflow.NewEngine(workflowRepo, executionRepo, registry, scheduler)
	engine.SetActionTimeout(cfg.ActionTimeout)
	engine.SetEntityReader(fieldservices.NewEntityReader(db.GORM))
	scheduler.Bind(engine)

	actions.RegisterBuiltins(registry, db.GORM, emailService, smsService, jobService)

	// Every emitted business event reaches the engine through the wildcard
	// listener.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.SubscribeAll(func(event events.Event) {
		engine.ExecuteWorkflowsForEvent(ctx, event.EventType, event.EntityData)
	})

	scheduler.Start(ctx)

	app := newOpsAPI(executionRepo, bus, scheduler)
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("Ops API stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Shutting down...")
	_ = app.Shutdown()
	scheduler.Stop()
	cancel()
}

// buildEmailProvider selects the outbound email provider from config. Anything
// unconfigured falls back to the console provider.
func buildEmailProvider(cfg *config.Config) email.Provider {
	switch cfg.EmailProvider {
	case "brevo":
		if cfg.EmailAPIKey != "" {
			return email.NewBrevoProvider(cfg.EmailAPIKey, cfg.EmailFrom, cfg.EmailFromName)
		}
		log.Warn().Msg("⚠️ EMAIL_PROVIDER=brevo but EMAIL_API_KEY is empty, using console provider")
	case "resend":
		if cfg.EmailAPIKey != "" {
			return email.NewResendProvider(cfg.EmailAPIKey, cfg.EmailFrom, cfg.EmailFromName)
		}
		log.Warn().Msg("⚠️ EMAIL_PROVIDER=resend but EMAIL_API_KEY is empty, using console provider")
	}
	return email.NewConsoleProvider()
}

// newOpsAPI builds the minimal operator surface: health, audit trail reads and
// a manual event emission hook. The admin CRUD surface lives elsewhere.
func newOpsAPI(executions automationrepos.ExecutionRepo, bus *events.Bus, scheduler *workflow.Scheduler) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/workflows/:id/executions", func(c *fiber.Ctx) error {
		workflowID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid workflow id"})
		}
		limit := c.QueryInt("limit", 50)
		entries, err := executions.FindByWorkflowID(workflowID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(entries)
	})

	app.Post("/events", func(c *fiber.Ctx) error {
		var body struct {
			EventType  string                 `json:"event_type"`
			EntityData map[string]interface{} `json:"entity_data"`
		}
		if err := c.BodyParser(&body); err != nil || body.EventType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "event_type is required"})
		}
		return c.JSON(bus.Emit(body.EventType, body.EntityData))
	})

	app.Post("/scheduler/poll", func(c *fiber.Ctx) error {
		scheduler.Poll(c.Context())
		return c.JSON(fiber.Map{"status": "polled"})
	})

	return app
}
