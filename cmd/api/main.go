package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/uistaff/invento-backend/api/routes"
	"github.com/uistaff/invento-backend/internal/authn"
	"github.com/uistaff/invento-backend/internal/feed"
	"github.com/uistaff/invento-backend/internal/inventory"
	"github.com/uistaff/invento-backend/internal/notifications"
	"github.com/uistaff/invento-backend/internal/orders"
	"github.com/uistaff/invento-backend/internal/users"
	"github.com/uistaff/invento-backend/internal/vendors"
	"github.com/uistaff/invento-backend/pkg/config"
	"github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/logger"
	"github.com/uistaff/invento-backend/pkg/metrics"
	"github.com/uistaff/invento-backend/pkg/migrate"
	"github.com/uistaff/invento-backend/pkg/outbox"
	"github.com/uistaff/invento-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

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
	vendorsService, err := vendors.NewService(dbClient, vendors.NewRepository(dbClient.DB()), outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create vendors service", err)
		os.Exit(1)
	}
	usersService, err := users.NewService(dbClient, usersRepo, outboxService, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}
	authnService, err := authn.NewService(usersRepo, redisClient, cfg.JWT, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create authn service", err)
		os.Exit(1)
	}

	// The API embeds the change feed so the SSE hub sees every
	// mutation without an extra hop through the broker.
	feedMetrics := metrics.NewFeedMetrics(prometheus.DefaultRegisterer)
	hub := feed.NewHub(cfg.Feed.ClientBuffer, feedMetrics)
	broadcaster := feed.NewBroadcaster(outboxRepo, []feed.Sink{feed.NewHubSink(hub)}, cfg.Feed, feedMetrics, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go broadcaster.Run(ctx)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient, hub,
			authnService, inventoryService, notificationsService,
			ordersService, vendorsService, usersService,
		),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
