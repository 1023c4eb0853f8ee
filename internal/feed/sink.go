package feed

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/slack-go/slack"

	"github.com/uistaff/invento-backend/pkg/enums"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
)

// Sink receives every event a watcher observes. Sink failures are
// logged by the caller and never stop the feed.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// HubSink pushes events to connected realtime subscribers.
type HubSink struct {
	hub *Hub
}

func NewHubSink(hub *Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Deliver(_ context.Context, event Event) error {
	s.hub.Broadcast(event)
	return nil
}

// webhookPoster is the slice of the Slack API the mirror needs.
type webhookPoster func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// SlackMirror forwards update events to a chat webhook so the team
// channel sees inventory movement without opening the dashboard.
// Inserts and deletes are not mirrored.
type SlackMirror struct {
	url  string
	post webhookPoster
}

func NewSlackMirror(webhookURL string) (*SlackMirror, error) {
	if webhookURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook url required")
	}
	return &SlackMirror{url: webhookURL, post: slack.PostWebhookContext}, nil
}

func (s *SlackMirror) Deliver(ctx context.Context, event Event) error {
	if event.Op != enums.ChangeOpUpdate {
		return nil
	}
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("%s updated:\n```%s```", event.Collection, event.Data),
	}
	return s.post(ctx, s.url, msg)
}

// PubSubSink republishes events onto the change topic for downstream
// consumers outside the process.
type PubSubSink struct {
	publisher *pubsub.Publisher
}

func NewPubSubSink(publisher *pubsub.Publisher) *PubSubSink {
	return &PubSubSink{publisher: publisher}
}

func (s *PubSubSink) Deliver(ctx context.Context, event Event) error {
	if s.publisher == nil {
		return nil
	}
	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data: event.Data,
		Attributes: map[string]string{
			"collection": string(event.Collection),
			"op":         string(event.Op),
			"event":      event.Name,
		},
	})
	_, err := result.Get(ctx)
	return err
}
