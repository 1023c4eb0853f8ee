package feed

import (
	"context"
	"sync"

	"github.com/uistaff/invento-backend/pkg/config"
	"github.com/uistaff/invento-backend/pkg/enums"
	"github.com/uistaff/invento-backend/pkg/logger"
	"github.com/uistaff/invento-backend/pkg/metrics"
)

// Broadcaster runs one watcher per watched collection. Shutdown is
// cooperative: cancel the context passed to Run and it returns once
// every watcher has stopped.
type Broadcaster struct {
	watchers []*Watcher
}

// NewBroadcaster builds a watcher per collection, all feeding the same
// sinks.
func NewBroadcaster(
	source Source,
	sinks []Sink,
	cfg config.FeedConfig,
	feedMetrics *metrics.FeedMetrics,
	logg *logger.Logger,
) *Broadcaster {
	aggregates := enums.AggregateTypes()
	watchers := make([]*Watcher, 0, len(aggregates))
	for _, aggregate := range aggregates {
		watchers = append(watchers, NewWatcher(aggregate, source, sinks, cfg, feedMetrics, logg))
	}
	return &Broadcaster{watchers: watchers}
}

// Run blocks until the context is cancelled and all watchers exit.
func (b *Broadcaster) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, watcher := range b.watchers {
		wg.Add(1)
		go func(w *Watcher) {
			defer wg.Done()
			w.Run(ctx)
		}(watcher)
	}
	wg.Wait()
}

// Watchers exposes the per-collection watchers for inspection.
func (b *Broadcaster) Watchers() []*Watcher {
	out := make([]*Watcher, len(b.watchers))
	copy(out, b.watchers)
	return out
}
