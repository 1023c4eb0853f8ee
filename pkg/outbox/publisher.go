package outbox

import (
	"context"
	"time"

	pubsubv2 "cloud.google.com/go/pubsub/v2"

	"github.com/uistaff/invento-backend/pkg/config"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/logger"
)

// PublishFunc sends one event to the external broker.
type PublishFunc func(ctx context.Context, event models.OutboxEvent) error

// Publisher drains unpublished outbox rows to the change topic.
// Publishing is at-least-once: a row is marked published only after
// the broker accepted it, and failures are retried until the attempt
// limit with the last error recorded on the row.
type Publisher struct {
	repo    *Repository
	publish PublishFunc
	cfg     config.OutboxConfig
	logg    *logger.Logger
}

// NewPublisher wires the outbox drain loop.
func NewPublisher(repo *Repository, publish PublishFunc, cfg config.OutboxConfig, logg *logger.Logger) *Publisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = 500
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Publisher{repo: repo, publish: publish, cfg: cfg, logg: logg}
}

// PubSubPublishFunc adapts a Pub/Sub publisher handle to PublishFunc.
func PubSubPublishFunc(publisher *pubsubv2.Publisher) PublishFunc {
	return func(ctx context.Context, event models.OutboxEvent) error {
		result := publisher.Publish(ctx, &pubsubv2.Message{
			Data: event.Payload,
			Attributes: map[string]string{
				"op":             string(event.Op),
				"aggregate_type": string(event.AggregateType),
				"aggregate_id":   event.AggregateID.String(),
			},
		})
		_, err := result.Get(ctx)
		return err
	}
}

// Run drains the outbox until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	interval := time.Duration(p.cfg.PollIntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.DrainOnce(ctx); err != nil && p.logg != nil {
				p.logg.Error(ctx, "outbox drain failed", err)
			}
		}
	}
}

// DrainOnce publishes one batch and reports how many rows went out.
func (p *Publisher) DrainOnce(ctx context.Context) (int, error) {
	rows, err := p.repo.FetchUnpublished(p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, row := range rows {
		if row.AttemptCount >= p.cfg.MaxAttempts {
			// Poisoned row; leave it for operator inspection.
			continue
		}
		if err := p.publish(ctx, row); err != nil {
			if markErr := p.repo.MarkFailed(row.ID, err); markErr != nil && p.logg != nil {
				p.logg.Error(ctx, "record publish failure", markErr)
			}
			continue
		}
		if err := p.repo.MarkPublished(row.ID); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}
