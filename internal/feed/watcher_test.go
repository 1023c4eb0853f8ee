package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"github.com/uistaff/invento-backend/pkg/config"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	"github.com/uistaff/invento-backend/pkg/outbox"
)

func fastFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		PollInterval: time.Millisecond,
		BackoffBase:  time.Millisecond,
		BackoffCap:   4 * time.Millisecond,
		BatchSize:    10,
		ClientBuffer: 8,
	}
}

type fakeSource struct {
	mu       sync.Mutex
	rows     []models.OutboxEvent
	latest   int64
	failures int
}

func (f *fakeSource) LatestSeq(enums.OutboxAggregateType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func (f *fakeSource) FetchAfter(_ enums.OutboxAggregateType, afterSeq int64, limit int) ([]models.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("stream interrupted")
	}
	var out []models.OutboxEvent
	for _, row := range f.rows {
		if row.Seq > afterSeq && len(out) < limit {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeSource) append(t *testing.T, seq int64, op enums.ChangeOp, doc any) {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal doc: %v", err)
	}
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	f.mu.Lock()
	f.rows = append(f.rows, models.OutboxEvent{
		ID:            uuid.New(),
		Seq:           seq,
		Op:            op,
		AggregateType: enums.AggregateInventoryItem,
		AggregateID:   uuid.New(),
		Payload:       payload,
	})
	if seq > f.latest {
		f.latest = seq
	}
	f.mu.Unlock()
}

type capturingSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *capturingSink) Deliver(_ context.Context, event Event) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	return nil
}

func (c *capturingSink) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatcher_TailsOnlyNewEvents(t *testing.T) {
	source := &fakeSource{}
	source.append(t, 1, enums.ChangeOpInsert, map[string]any{"name": "old event"})

	sink := &capturingSink{}
	watcher := NewWatcher(enums.AggregateInventoryItem, source, []Sink{sink}, fastFeedConfig(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()

	waitFor(t, time.Second, func() bool { return watcher.State() == StateStreaming })

	source.append(t, 2, enums.ChangeOpUpdate, map[string]any{"name": "live event"})
	waitFor(t, time.Second, func() bool { return len(sink.snapshot()) == 1 })

	events := sink.snapshot()
	if events[0].Name != "inventory_items_update" {
		t.Fatalf("unexpected event name %q", events[0].Name)
	}
	if events[0].Collection != enums.CollectionInventoryItems {
		t.Fatalf("unexpected collection %q", events[0].Collection)
	}
	var doc map[string]any
	if err := json.Unmarshal(events[0].Data, &doc); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if doc["name"] != "live event" {
		t.Fatalf("expected the live document, got %v", doc)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not shut down")
	}
}

func TestWatcher_ReconnectsAfterStreamErrors(t *testing.T) {
	source := &fakeSource{failures: 3}
	sink := &capturingSink{}
	watcher := NewWatcher(enums.AggregateInventoryItem, source, []Sink{sink}, fastFeedConfig(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	// Wait until the cursor is positioned, then write while the first
	// polls fail; the watcher must back off and recover.
	waitFor(t, time.Second, func() bool { return watcher.State() != StateConnecting })
	source.append(t, 1, enums.ChangeOpInsert, map[string]any{"name": "after recovery"})
	waitFor(t, 2*time.Second, func() bool { return len(sink.snapshot()) == 1 })

	if state := watcher.State(); state != StateStreaming {
		t.Fatalf("expected STREAMING after recovery, got %s", state)
	}
}

func TestWatcher_CursorSurvivesReconnect(t *testing.T) {
	source := &fakeSource{}
	sink := &capturingSink{}
	watcher := NewWatcher(enums.AggregateInventoryItem, source, []Sink{sink}, fastFeedConfig(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	waitFor(t, time.Second, func() bool { return watcher.State() == StateStreaming })

	source.append(t, 1, enums.ChangeOpInsert, map[string]any{"n": 1})
	waitFor(t, time.Second, func() bool { return len(sink.snapshot()) == 1 })

	// Interrupt the stream, then write while it is reconnecting. The
	// event written during the outage must still be delivered exactly
	// once.
	source.mu.Lock()
	source.failures = 2
	source.mu.Unlock()
	source.append(t, 2, enums.ChangeOpInsert, map[string]any{"n": 2})

	waitFor(t, 2*time.Second, func() bool { return len(sink.snapshot()) == 2 })
	events := sink.snapshot()
	if events[1].Seq != 2 {
		t.Fatalf("expected seq 2, got %d", events[1].Seq)
	}
}

func TestBroadcaster_RunsAWatcherPerCollection(t *testing.T) {
	broadcaster := NewBroadcaster(&fakeSource{}, nil, fastFeedConfig(), nil, nil)
	if len(broadcaster.Watchers()) != len(enums.AggregateTypes()) {
		t.Fatalf("expected %d watchers, got %d", len(enums.AggregateTypes()), len(broadcaster.Watchers()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		broadcaster.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not shut down")
	}
}

func TestHub_BroadcastAndSlowConsumer(t *testing.T) {
	hub := NewHub(2, nil)
	fast := hub.Subscribe("fast")
	slow := hub.Subscribe("slow")

	// Fill the slow consumer's buffer, then keep broadcasting.
	for i := 0; i < 5; i++ {
		hub.Broadcast(Event{Name: "inventory_items_update"})
		// Drain the fast consumer as we go.
		select {
		case <-fast.Events:
		default:
		}
	}

	if got := len(slow.Events); got != 2 {
		t.Fatalf("expected the slow consumer to hold its buffer size, got %d", got)
	}

	hub.Unsubscribe("slow")
	if hub.Len() != 1 {
		t.Fatalf("expected one subscriber left, got %d", hub.Len())
	}
	// Draining terminates because Unsubscribe closed the channel.
	for range slow.Events {
	}
}

func TestSlackMirror_OnlyUpdatesAreMirrored(t *testing.T) {
	var posted []string
	mirror := &SlackMirror{
		url: "https://hooks.example.com/T000/B000",
		post: func(_ context.Context, _ string, msg *slack.WebhookMessage) error {
			posted = append(posted, msg.Text)
			return nil
		},
	}

	ctx := context.Background()
	doc := json.RawMessage(`{"name":"Toilet Paper","quantity":4}`)
	for _, op := range []enums.ChangeOp{enums.ChangeOpInsert, enums.ChangeOpUpdate, enums.ChangeOpDelete} {
		event := Event{
			Name:       enums.EventName(enums.CollectionInventoryItems, op),
			Collection: enums.CollectionInventoryItems,
			Op:         op,
			Data:       doc,
		}
		if err := mirror.Deliver(ctx, event); err != nil {
			t.Fatalf("deliver %s: %v", op, err)
		}
	}

	if len(posted) != 1 {
		t.Fatalf("expected only the update to be mirrored, got %d posts", len(posted))
	}
	if !json.Valid([]byte(`{"name":"Toilet Paper","quantity":4}`)) || posted[0] == "" {
		t.Fatal("expected a readable mirror message")
	}
}
