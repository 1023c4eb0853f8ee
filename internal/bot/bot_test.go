package bot

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/slack-go/slack"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/internal/assistant"
	"github.com/uistaff/invento-backend/internal/intent"
	"github.com/uistaff/invento-backend/internal/inventory"
	"github.com/uistaff/invento-backend/internal/notifications"
	"github.com/uistaff/invento-backend/internal/orders"
	"github.com/uistaff/invento-backend/internal/users"
	"github.com/uistaff/invento-backend/pkg/config"
	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	"github.com/uistaff/invento-backend/pkg/outbox"
)

type fakePoster struct {
	posts []string
}

func (f *fakePoster) PostMessageContext(_ context.Context, _ string, _ ...slack.MsgOption) (string, string, error) {
	f.posts = append(f.posts, "sent")
	return "", "", nil
}

type cannedAI struct {
	reply string
	calls int
}

func (c *cannedAI) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: c.reply}},
		},
	}, nil
}

func newTestBot(t *testing.T, ai *cannedAI) (*Bot, inventory.Service, users.Service) {
	t.Helper()
	dsn := "file:bot_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(
		&models.InventoryItem{},
		&models.InventoryUsage{},
		&models.Notification{},
		&models.Order{},
		&models.User{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	client := dbpkg.NewFromConn(conn)
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	inventorySvc, err := inventory.NewService(
		client,
		inventory.NewRepository(conn),
		inventory.NewUsageRepository(conn),
		notifications.NewRepository(conn),
		events,
		nil,
		"all",
	)
	if err != nil {
		t.Fatalf("new inventory service: %v", err)
	}
	notificationsSvc, err := notifications.NewService(client, notifications.NewRepository(conn), events)
	if err != nil {
		t.Fatalf("new notifications service: %v", err)
	}
	ordersSvc, err := orders.NewService(client, orders.NewRepository(conn), inventorySvc, events, nil)
	if err != nil {
		t.Fatalf("new orders service: %v", err)
	}
	usersSvc, err := users.NewService(client, users.NewRepository(conn), events, config.PasswordConfig{
		ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32,
	})
	if err != nil {
		t.Fatalf("new users service: %v", err)
	}

	router, err := intent.NewRouter(inventorySvc, notificationsSvc, ordersSvc, nil)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	aiSvc, err := assistant.New(ai, "test-model", inventorySvc, notificationsSvc, ordersSvc, nil)
	if err != nil {
		t.Fatalf("new assistant: %v", err)
	}

	bot, err := newWithClients(nil, &fakePoster{}, router, aiSvc, usersSvc, nil)
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	return bot, inventorySvc, usersSvc
}

func TestHandleMessage_CommandsBypassTheModel(t *testing.T) {
	ai := &cannedAI{reply: "should not be used"}
	bot, inventorySvc, _ := newTestBot(t, ai)
	ctx := context.Background()

	if _, err := inventorySvc.CreateItem(ctx, inventory.CreateItemInput{
		Name: "Paper Towels", Category: "Supplies", Quantity: 8, MinQuantity: 2,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	reply := bot.HandleMessage(ctx, "U123", "2 paper towels used")
	if reply != "2 Paper Towels removed from the inventory. 6 remaining." {
		t.Fatalf("unexpected reply %q", reply)
	}
	if ai.calls != 0 {
		t.Fatalf("model must not be called for pattern matches, got %d calls", ai.calls)
	}
}

func TestHandleMessage_FreeTextFallsToAssistant(t *testing.T) {
	ai := &cannedAI{reply: "All good here."}
	bot, _, _ := newTestBot(t, ai)

	reply := bot.HandleMessage(context.Background(), "U123", "how are things looking?")
	if reply != "All good here." {
		t.Fatalf("unexpected reply %q", reply)
	}
	if ai.calls != 1 {
		t.Fatalf("expected one model call, got %d", ai.calls)
	}
}

func TestHandleMessage_AttributesKnownSlackUser(t *testing.T) {
	ai := &cannedAI{reply: ""}
	bot, inventorySvc, usersSvc := newTestBot(t, ai)
	ctx := context.Background()

	account, err := usersSvc.Create(ctx, users.CreateInput{
		Name:     "Sam",
		Email:    "sam@example.com",
		Password: "hunter2hunter2",
		Role:     enums.UserRoleUser,
		SlackID:  "U777",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := inventorySvc.CreateItem(ctx, inventory.CreateItemInput{
		Name: "Hand Soap", Category: "Supplies", Quantity: 5, MinQuantity: 1,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	_ = bot.HandleMessage(ctx, "U777", "1 hand soap used")

	entries, err := inventorySvc.ListUsage(ctx, inventory.UsageListQuery{})
	if err != nil {
		t.Fatalf("list usage: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(entries))
	}
	if entries[0].UserID == nil || *entries[0].UserID != account.ID {
		t.Fatal("expected the ledger entry to carry the sender's account id")
	}
}
