package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
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
	if err := conn.AutoMigrate(&models.Notification{}, &models.OutboxEvent{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	events := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(dbpkg.NewFromConn(conn), NewRepository(conn), events)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func TestCreate_DefaultsAndEmitsChangeEvent(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Message: "Audit scheduled for Friday."})
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if created.Type != enums.NotificationTypeSystem {
		t.Fatalf("expected SYSTEM type, got %s", created.Type)
	}
	if created.Recipient != "all" {
		t.Fatalf("expected broadcast recipient, got %q", created.Recipient)
	}

	var events []models.OutboxEvent
	if err := conn.Order("seq ASC").Find(&events).Error; err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one change event, got %d", len(events))
	}
	if events[0].Op != enums.ChangeOpInsert || events[0].AggregateType != enums.AggregateNotification {
		t.Fatalf("unexpected event %s/%s", events[0].Op, events[0].AggregateType)
	}
	if events[0].AggregateID != created.ID {
		t.Fatalf("expected aggregate id %s, got %s", created.ID, events[0].AggregateID)
	}
}

func TestCreate_RejectsEmptyMessage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestList_RecipientSeesBroadcastAndOwn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	userID := uuid.NewString()
	otherID := uuid.NewString()
	for _, input := range []CreateInput{
		{Message: "broadcast one"},
		{Message: "direct to user", Recipient: userID},
		{Message: "direct to someone else", Recipient: otherID},
	} {
		if _, err := svc.Create(ctx, input); err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	result, err := svc.List(ctx, ListParams{Recipient: userID})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected broadcast plus own, got %d", len(result.Items))
	}
	for _, n := range result.Items {
		if n.Recipient != "all" && n.Recipient != userID {
			t.Fatalf("leaked notification for recipient %q", n.Recipient)
		}
	}
}

func TestList_PaginatesWithCursor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, CreateInput{Message: "notice"}); err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	first, err := svc.List(ctx, ListParams{Limit: 3})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(first.Items))
	}
	if first.Cursor == "" {
		t.Fatal("expected a next cursor")
	}

	second, err := svc.List(ctx, ListParams{Limit: 3, Cursor: first.Cursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(second.Items))
	}
	if second.Cursor != "" {
		t.Fatalf("expected no cursor on the last page, got %q", second.Cursor)
	}

	seen := map[uuid.UUID]bool{}
	for _, n := range append(first.Items, second.Items...) {
		if seen[n.ID] {
			t.Fatalf("notification %s returned twice", n.ID)
		}
		seen[n.ID] = true
	}
}

func TestMarkRead(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Message: "read me"})
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}

	if err := svc.MarkRead(ctx, created.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	var stored models.Notification
	if err := conn.Where("id = ?", created.ID).First(&stored).Error; err != nil {
		t.Fatalf("load notification: %v", err)
	}
	if stored.ReadAt == nil {
		t.Fatal("expected read_at to be set")
	}

	err = svc.MarkRead(ctx, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for unknown id, got %v", err)
	}
}

func TestMarkAllRead_ScopedToRecipient(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	userID := uuid.NewString()
	for _, input := range []CreateInput{
		{Message: "broadcast"},
		{Message: "mine", Recipient: userID},
		{Message: "not mine", Recipient: uuid.NewString()},
	} {
		if _, err := svc.Create(ctx, input); err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	count, err := svc.MarkAllRead(ctx, userID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 marked, got %d", count)
	}

	remaining, err := svc.List(ctx, ListParams{Recipient: userID, UnreadOnly: true})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(remaining.Items) != 0 {
		t.Fatalf("expected no unread left, got %d", len(remaining.Items))
	}
}
