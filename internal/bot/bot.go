package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/uistaff/invento-backend/internal/assistant"
	"github.com/uistaff/invento-backend/internal/intent"
	"github.com/uistaff/invento-backend/internal/users"
	"github.com/uistaff/invento-backend/pkg/config"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
)

// Poster is the slice of the Slack client used to reply to messages.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Bot listens for workspace messages over socket mode. Commands and
// recognizable stock phrases resolve through the intent router; all
// other text goes to the assistant.
type Bot struct {
	socket *socketmode.Client
	poster Poster
	router *intent.Router
	ai     *assistant.Assistant
	users  users.Service
	logg   *logger.Logger
}

// New builds the Slack worker from configuration.
func New(
	cfg config.SlackConfig,
	router *intent.Router,
	ai *assistant.Assistant,
	usersSvc users.Service,
	logg *logger.Logger,
) (*Bot, error) {
	if cfg.BotToken == "" || cfg.AppToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "slack bot and app tokens required")
	}
	if !strings.HasPrefix(cfg.AppToken, "xapp-") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slack app token must start with xapp-")
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	socket := socketmode.New(api)

	bot, err := newWithClients(socket, api, router, ai, usersSvc, logg)
	if err != nil {
		return nil, err
	}
	return bot, nil
}

func newWithClients(
	socket *socketmode.Client,
	poster Poster,
	router *intent.Router,
	ai *assistant.Assistant,
	usersSvc users.Service,
	logg *logger.Logger,
) (*Bot, error) {
	if router == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "intent router required")
	}
	if ai == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "assistant required")
	}
	if usersSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users service required")
	}
	return &Bot{
		socket: socket,
		poster: poster,
		router: router,
		ai:     ai,
		users:  usersSvc,
		logg:   logg,
	}, nil
}

// Run pumps socket-mode events until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-b.socket.Events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			}
		}
	}()

	err := b.socket.RunContext(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *Bot) dispatch(ctx context.Context, evt socketmode.Event) {
	if evt.Type != socketmode.EventTypeEventsAPI {
		return
	}
	apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	if evt.Request != nil {
		b.socket.Ack(*evt.Request)
	}

	message, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Never answer our own (or any other bot's) messages.
	if message.BotID != "" || message.User == "" || message.Text == "" {
		return
	}

	reply := b.HandleMessage(ctx, message.User, message.Text)
	if reply == "" {
		return
	}
	if _, _, err := b.poster.PostMessageContext(ctx, message.Channel, slack.MsgOptionText(reply, false)); err != nil {
		if b.logg != nil {
			b.logg.Error(ctx, "post slack reply failed", err)
		}
	}
}

// HandleMessage resolves one inbound message to its reply text. An
// empty string means nothing should be posted.
func (b *Bot) HandleMessage(ctx context.Context, slackUserID, text string) string {
	actorID := b.resolveActor(ctx, slackUserID)

	if reply, handled := b.router.Route(ctx, text, actorID); handled {
		return reply
	}
	return b.ai.ProcessMessage(ctx, text, actorID)
}

// resolveActor maps a Slack identity onto an account so ledger entries
// carry attribution. Unknown senders still get served, just without a
// user id on the entry.
func (b *Bot) resolveActor(ctx context.Context, slackUserID string) *uuid.UUID {
	if slackUserID == "" {
		return nil
	}
	user, err := b.users.GetBySlackID(ctx, slackUserID)
	if err != nil {
		return nil
	}
	return &user.ID
}
