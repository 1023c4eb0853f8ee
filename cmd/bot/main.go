package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"github.com/uistaff/invento-backend/internal/assistant"
	"github.com/uistaff/invento-backend/internal/bot"
	"github.com/uistaff/invento-backend/internal/intent"
	"github.com/uistaff/invento-backend/internal/inventory"
	"github.com/uistaff/invento-backend/internal/notifications"
	"github.com/uistaff/invento-backend/internal/orders"
	"github.com/uistaff/invento-backend/internal/users"
	"github.com/uistaff/invento-backend/pkg/config"
	"github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/logger"
	"github.com/uistaff/invento-backend/pkg/migrate"
	"github.com/uistaff/invento-backend/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "bot"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "bot"

	logg = logger.New(logger.Options{
		ServiceName: "bot",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	usageRepo := inventory.NewUsageRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	notificationsService, err := notifications.NewService(dbClient, notificationsRepo, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}
	inventoryService, err := inventory.NewService(dbClient, inventoryRepo, usageRepo, notificationsRepo, outboxService, logg, cfg.Alerts.Recipient)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(dbClient, orders.NewRepository(dbClient.DB()), inventoryService, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	usersService, err := users.NewService(dbClient, usersRepo, outboxService, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	router, err := intent.NewRouter(inventoryService, notificationsService, ordersService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create intent router", err)
		os.Exit(1)
	}

	if cfg.OpenAI.APIKey == "" {
		logg.Error(context.Background(), "openai api key required for the bot worker", errors.New("INVENTO_OPENAI_API_KEY not set"))
		os.Exit(1)
	}
	ai, err := assistant.New(
		openai.NewClient(cfg.OpenAI.APIKey),
		cfg.OpenAI.Model,
		inventoryService, notificationsService, ordersService, logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create assistant", err)
		os.Exit(1)
	}

	worker, err := bot.New(cfg.Slack, router, ai, usersService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create slack worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "bot",
	})
	logg.Info(ctx, "starting slack worker")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "slack worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "slack worker shutting down gracefully")
}
