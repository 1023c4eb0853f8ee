package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/uistaff/invento-backend/pkg/config"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	"github.com/uistaff/invento-backend/pkg/logger"
	"github.com/uistaff/invento-backend/pkg/metrics"
	"github.com/uistaff/invento-backend/pkg/outbox"
)

// State tracks where a watcher is in its lifecycle.
type State string

const (
	StateConnecting   State = "CONNECTING"
	StateStreaming    State = "STREAMING"
	StateReconnecting State = "RECONNECTING"
)

// Source is the change-stream read surface a watcher tails.
type Source interface {
	LatestSeq(aggregateType enums.OutboxAggregateType) (int64, error)
	FetchAfter(aggregateType enums.OutboxAggregateType, afterSeq int64, limit int) ([]models.OutboxEvent, error)
}

// Watcher tails one collection's change stream and pushes every
// observed mutation to its sinks. Each collection runs its own
// watcher; a failure in one never affects the others.
type Watcher struct {
	aggregate enums.OutboxAggregateType
	source    Source
	sinks     []Sink
	cfg       config.FeedConfig
	metrics   *metrics.FeedMetrics
	logg      *logger.Logger

	mu         sync.RWMutex
	state      State
	cursor     int64
	positioned bool
}

// NewWatcher builds a watcher for one aggregate's stream.
func NewWatcher(
	aggregate enums.OutboxAggregateType,
	source Source,
	sinks []Sink,
	cfg config.FeedConfig,
	feedMetrics *metrics.FeedMetrics,
	logg *logger.Logger,
) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Watcher{
		aggregate: aggregate,
		source:    source,
		sinks:     sinks,
		cfg:       cfg,
		metrics:   feedMetrics,
		logg:      logg,
		state:     StateConnecting,
	}
}

// State returns the watcher's current lifecycle state.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Run tails the stream until the context is cancelled. Stream errors
// trigger exponential backoff from the base delay up to the cap; the
// delay resets once a poll succeeds.
func (w *Watcher) Run(ctx context.Context) {
	backoff := w.cfg.BackoffBase

	for {
		if err := w.connect(); err != nil {
			w.setState(StateReconnecting)
			w.noteReconnect(ctx, err)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, w.cfg.BackoffCap)
			continue
		}
		w.setState(StateStreaming)
		backoff = w.cfg.BackoffBase

		if err := w.stream(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.setState(StateReconnecting)
			w.noteReconnect(ctx, err)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, w.cfg.BackoffCap)
			continue
		}
		return
	}
}

// connect positions the cursor at the stream tail. Events written
// while the watcher was down are not replayed; the feed is a live
// tail, not a backfill.
func (w *Watcher) connect() error {
	w.mu.RLock()
	positioned := w.positioned
	w.mu.RUnlock()
	if positioned {
		// Reconnect keeps the old cursor so no live event is skipped.
		return nil
	}

	seq, err := w.source.LatestSeq(w.aggregate)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.cursor = seq
	w.positioned = true
	w.mu.Unlock()
	return nil
}

func (w *Watcher) stream(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	started := time.Now()

	w.mu.RLock()
	cursor := w.cursor
	w.mu.RUnlock()

	rows, err := w.source.FetchAfter(w.aggregate, cursor, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, row := range rows {
		event, err := w.toEvent(row)
		if err != nil {
			if w.logg != nil {
				w.logg.Error(ctx, "malformed change event skipped", err)
			}
		} else {
			w.deliver(ctx, event)
		}
		w.mu.Lock()
		w.cursor = row.Seq
		w.mu.Unlock()
	}

	w.metrics.ObserveBatch(string(w.aggregate.Collection()), time.Since(started))
	return nil
}

func (w *Watcher) toEvent(row models.OutboxEvent) (Event, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return Event{}, err
	}
	collection := row.AggregateType.Collection()
	return Event{
		Name:       enums.EventName(collection, row.Op),
		Collection: collection,
		Op:         row.Op,
		Data:       envelope.Data,
		Seq:        row.Seq,
	}, nil
}

// deliver pushes one event through every sink. A sink failure never
// stops the rest from receiving the event.
func (w *Watcher) deliver(ctx context.Context, event Event) {
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if combined := multierr.Combine(errs...); combined != nil && w.logg != nil {
		logCtx := w.logg.WithCollection(ctx, string(event.Collection))
		w.logg.Error(logCtx, "feed sink delivery failed", combined)
	}
	w.metrics.IncBroadcast(string(event.Collection), string(event.Op))
}

func (w *Watcher) noteReconnect(ctx context.Context, err error) {
	w.metrics.IncReconnect(string(w.aggregate.Collection()))
	if w.logg != nil {
		logCtx := w.logg.WithCollection(ctx, string(w.aggregate.Collection()))
		w.logg.Warn(logCtx, "change stream interrupted: "+err.Error())
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
