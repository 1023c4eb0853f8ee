package main

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/uistaff/invento-backend/internal/feed"
	"github.com/uistaff/invento-backend/pkg/config"
	"github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/logger"
	"github.com/uistaff/invento-backend/pkg/metrics"
	"github.com/uistaff/invento-backend/pkg/migrate"
	"github.com/uistaff/invento-backend/pkg/outbox"
	"github.com/uistaff/invento-backend/pkg/pubsub"
)

// The standalone broadcaster mirrors changes to Slack and drains the
// outbox to Pub/Sub. The SSE hub lives in the API process, which runs
// its own embedded watchers.
func main() {
	logg := logger.New(logger.Options{ServiceName: "feed-broadcaster"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "feed-broadcaster"

	logg = logger.New(logger.Options{
		ServiceName: "feed-broadcaster",
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

	outboxRepo := outbox.NewRepository(dbClient.DB())
	feedMetrics := metrics.NewFeedMetrics(prometheus.DefaultRegisterer)

	sinks := []feed.Sink{}
	if cfg.Slack.WebhookURL != "" {
		mirror, err := feed.NewSlackMirror(cfg.Slack.WebhookURL)
		if err != nil {
			logg.Error(context.Background(), "failed to create slack mirror", err)
			os.Exit(1)
		}
		sinks = append(sinks, mirror)
	}

	var publisher *outbox.Publisher
	if cfg.PubSub.Enabled {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		publisher = outbox.NewPublisher(
			outboxRepo,
			outbox.PubSubPublishFunc(pubsubClient.ChangePublisher()),
			cfg.Outbox,
			logg,
		)
	}

	if len(sinks) == 0 && publisher == nil {
		logg.Warn(context.Background(), "no sinks configured, broadcaster has nothing to do")
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "feed-broadcaster",
	})
	logg.Info(ctx, "starting feed broadcaster")

	var wg sync.WaitGroup
	if len(sinks) > 0 {
		broadcaster := feed.NewBroadcaster(outboxRepo, sinks, cfg.Feed, feedMetrics, logg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			broadcaster.Run(ctx)
		}()
	}
	if publisher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			publisher.Run(ctx)
		}()
	}
	wg.Wait()

	logg.Info(ctx, "feed broadcaster shutting down gracefully")
}
