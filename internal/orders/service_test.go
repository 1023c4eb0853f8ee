package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/internal/inventory"
	"github.com/uistaff/invento-backend/internal/notifications"
	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/outbox"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
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
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, inventory.Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
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

	svc, err := NewService(client, NewRepository(conn), inventorySvc, events, nil)
	if err != nil {
		t.Fatalf("new orders service: %v", err)
	}
	return svc, inventorySvc, conn
}

func seedOrder(t *testing.T, svc Service, inventorySvc inventory.Service, quantity int) (*models.Order, *models.InventoryItem) {
	t.Helper()
	ctx := context.Background()
	item, err := inventorySvc.CreateItem(ctx, inventory.CreateItemInput{
		Name:        "Hand Soap",
		Category:    "Supplies",
		Quantity:    4,
		MinQuantity: 2,
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	order, err := svc.Create(ctx, CreateInput{
		ItemID:           item.ID,
		VendorID:         uuid.New(),
		Quantity:         quantity,
		ExpectedDelivery: time.Now().Add(72 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order, item
}

func TestCreate_DefaultsToPending(t *testing.T) {
	svc, inventorySvc, _ := newTestService(t)

	order, _ := seedOrder(t, svc, inventorySvc, 10)
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if order.OrderDate.IsZero() {
		t.Fatal("expected order date to default to now")
	}
}

func TestCreate_UnknownItemRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{
		ItemID:   uuid.New(),
		VendorID: uuid.New(),
		Quantity: 5,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestUpdateStatus_ReceivedRestocksItem(t *testing.T) {
	svc, inventorySvc, conn := newTestService(t)
	ctx := context.Background()

	order, item := seedOrder(t, svc, inventorySvc, 10)

	updated, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusReceived, nil)
	if err != nil {
		t.Fatalf("receive order: %v", err)
	}
	if updated.Status != enums.OrderStatusReceived {
		t.Fatalf("expected received, got %s", updated.Status)
	}

	refreshed, err := inventorySvc.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if refreshed.Quantity != 14 {
		t.Fatalf("expected quantity 14 after restock, got %d", refreshed.Quantity)
	}

	var entries []models.InventoryUsage
	if err := conn.Where("item_id = ?", item.ID).Find(&entries).Error; err != nil {
		t.Fatalf("list usage: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(entries))
	}
	if entries[0].Action != enums.UsageActionRestock {
		t.Fatalf("expected restock action, got %s", entries[0].Action)
	}
	if entries[0].Quantity != 10 {
		t.Fatalf("expected ledger quantity 10, got %d", entries[0].Quantity)
	}
}

func TestUpdateStatus_CancelledSkipsRestock(t *testing.T) {
	svc, inventorySvc, conn := newTestService(t)
	ctx := context.Background()

	order, item := seedOrder(t, svc, inventorySvc, 10)

	updated, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled, nil)
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if updated.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}

	refreshed, err := inventorySvc.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if refreshed.Quantity != 4 {
		t.Fatalf("expected quantity unchanged at 4, got %d", refreshed.Quantity)
	}

	var ledgerCount int64
	if err := conn.Model(&models.InventoryUsage{}).Count(&ledgerCount).Error; err != nil {
		t.Fatalf("count usage: %v", err)
	}
	if ledgerCount != 0 {
		t.Fatalf("expected empty ledger, got %d entries", ledgerCount)
	}
}

func TestUpdateStatus_FailedRestockKeepsOrderPending(t *testing.T) {
	svc, inventorySvc, conn := newTestService(t)
	ctx := context.Background()

	order, item := seedOrder(t, svc, inventorySvc, 10)

	if err := inventorySvc.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	_, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusReceived, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	// The status flip rolls back with the failed restock, so the
	// receipt can be retried instead of losing the stock increase.
	reloaded, err := svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if reloaded.Status != enums.OrderStatusPending {
		t.Fatalf("expected order to stay pending, got %s", reloaded.Status)
	}

	restored := models.InventoryItem{
		ID:          item.ID,
		Name:        item.Name,
		Category:    item.Category,
		Quantity:    item.Quantity,
		MinQuantity: item.MinQuantity,
		Status:      item.Status,
	}
	if err := conn.Create(&restored).Error; err != nil {
		t.Fatalf("restore item: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusReceived, nil); err != nil {
		t.Fatalf("retry receive: %v", err)
	}
	refreshed, err := inventorySvc.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if refreshed.Quantity != 14 {
		t.Fatalf("expected quantity 14 after retried restock, got %d", refreshed.Quantity)
	}
}

func TestUpdateStatus_TerminalOrdersLocked(t *testing.T) {
	svc, inventorySvc, _ := newTestService(t)
	ctx := context.Background()

	order, _ := seedOrder(t, svc, inventorySvc, 10)

	if _, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusReceived, nil); err != nil {
		t.Fatalf("receive order: %v", err)
	}
	_, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestUpdateStatus_IdempotentSameStatus(t *testing.T) {
	svc, inventorySvc, conn := newTestService(t)
	ctx := context.Background()

	order, item := seedOrder(t, svc, inventorySvc, 10)

	if _, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusReceived, nil); err != nil {
		t.Fatalf("receive order: %v", err)
	}
	// Re-receiving must not restock the item twice.
	if _, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusReceived, nil); err != nil {
		t.Fatalf("re-receive order: %v", err)
	}

	refreshed, err := inventorySvc.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if refreshed.Quantity != 14 {
		t.Fatalf("expected quantity 14, got %d", refreshed.Quantity)
	}

	var ledgerCount int64
	if err := conn.Model(&models.InventoryUsage{}).Count(&ledgerCount).Error; err != nil {
		t.Fatalf("count usage: %v", err)
	}
	if ledgerCount != 1 {
		t.Fatalf("expected a single ledger entry, got %d", ledgerCount)
	}
}
