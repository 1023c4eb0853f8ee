package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FeedMetrics records change-feed watcher and broadcast activity.
type FeedMetrics struct {
	eventsBroadcast *prometheus.CounterVec
	reconnects      *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
	subscribers     prometheus.Gauge
}

// NewFeedMetrics registers the feed metrics on the provided registerer.
func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	if reg == nil {
		return &FeedMetrics{}
	}
	eventsBroadcast := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_events_broadcast_total",
		Help: "Change events fanned out to subscribers per collection.",
	}, []string{"collection", "op"})
	reconnects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_watcher_reconnects_total",
		Help: "Watcher reconnect attempts per collection.",
	}, []string{"collection"})
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_batch_duration_seconds",
		Help:    "Duration of one watcher poll-and-broadcast cycle.",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feed_subscribers",
		Help: "Currently connected realtime subscribers.",
	})
	reg.MustRegister(eventsBroadcast, reconnects, batchDuration, subscribers)
	return &FeedMetrics{
		eventsBroadcast: eventsBroadcast,
		reconnects:      reconnects,
		batchDuration:   batchDuration,
		subscribers:     subscribers,
	}
}

// IncBroadcast counts one event fanned out for the collection/op pair.
func (m *FeedMetrics) IncBroadcast(collection, op string) {
	if m == nil || m.eventsBroadcast == nil {
		return
	}
	m.eventsBroadcast.WithLabelValues(normalizeLabel(collection), normalizeLabel(op)).Inc()
}

// IncReconnect counts one watcher reconnect for the collection.
func (m *FeedMetrics) IncReconnect(collection string) {
	if m == nil || m.reconnects == nil {
		return
	}
	m.reconnects.WithLabelValues(normalizeLabel(collection)).Inc()
}

// ObserveBatch records the duration of a watcher cycle.
func (m *FeedMetrics) ObserveBatch(collection string, duration time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.WithLabelValues(normalizeLabel(collection)).Observe(duration.Seconds())
}

// SubscriberConnected moves the subscriber gauge up.
func (m *FeedMetrics) SubscriberConnected() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Inc()
}

// SubscriberDisconnected moves the subscriber gauge down.
func (m *FeedMetrics) SubscriberDisconnected() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Dec()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
