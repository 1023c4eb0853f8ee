package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/pkg/config"
	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
)

func newTestRepo(t *testing.T) (*Repository, *dbpkg.Client, *gorm.DB) {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
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
	if err := conn.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return NewRepository(conn), dbpkg.NewFromConn(conn), conn
}

func emitN(t *testing.T, client *dbpkg.Client, service *Service, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			return service.Emit(ctx, tx, ChangeEvent{
				Op:            enums.ChangeOpInsert,
				AggregateType: enums.AggregateInventoryItem,
				AggregateID:   uuid.New(),
				Data:          map[string]any{"n": i},
			})
		})
		if err != nil {
			t.Fatalf("emit event: %v", err)
		}
	}
}

func TestDrainOnce_PublishesAndMarks(t *testing.T) {
	repo, client, conn := newTestRepo(t)
	service := NewService(repo, nil)
	emitN(t, client, service, 3)

	var published int
	publisher := NewPublisher(repo, func(context.Context, models.OutboxEvent) error {
		published++
		return nil
	}, config.OutboxConfig{BatchSize: 10}, nil)

	n, err := publisher.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 3 || published != 3 {
		t.Fatalf("expected 3 published, got n=%d published=%d", n, published)
	}

	var unpublished int64
	if err := conn.Model(&models.OutboxEvent{}).Where("published_at IS NULL").Count(&unpublished).Error; err != nil {
		t.Fatalf("count unpublished: %v", err)
	}
	if unpublished != 0 {
		t.Fatalf("expected all rows marked published, %d remain", unpublished)
	}

	// A second drain finds nothing.
	n, err = publisher.DrainOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected empty drain, got n=%d err=%v", n, err)
	}
}

func TestDrainOnce_FailuresAreRecordedAndRetried(t *testing.T) {
	repo, client, conn := newTestRepo(t)
	service := NewService(repo, nil)
	emitN(t, client, service, 1)

	attempts := 0
	publisher := NewPublisher(repo, func(context.Context, models.OutboxEvent) error {
		attempts++
		if attempts == 1 {
			return errors.New("broker unavailable")
		}
		return nil
	}, config.OutboxConfig{BatchSize: 10}, nil)

	if n, _ := publisher.DrainOnce(context.Background()); n != 0 {
		t.Fatalf("expected first drain to publish nothing, got %d", n)
	}

	var row models.OutboxEvent
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.AttemptCount != 1 || row.LastError == nil {
		t.Fatalf("expected recorded failure, got attempts=%d lastErr=%v", row.AttemptCount, row.LastError)
	}

	if n, _ := publisher.DrainOnce(context.Background()); n != 1 {
		t.Fatalf("expected retry to publish, got %d", n)
	}
}

func TestDrainOnce_PoisonedRowsAreSkipped(t *testing.T) {
	repo, client, conn := newTestRepo(t)
	service := NewService(repo, nil)
	emitN(t, client, service, 1)

	if err := conn.Model(&models.OutboxEvent{}).
		Where("1 = 1").
		UpdateColumn("attempt_count", 10).Error; err != nil {
		t.Fatalf("poison row: %v", err)
	}

	calls := 0
	publisher := NewPublisher(repo, func(context.Context, models.OutboxEvent) error {
		calls++
		return nil
	}, config.OutboxConfig{BatchSize: 10, MaxAttempts: 10}, nil)

	if n, err := publisher.DrainOnce(context.Background()); err != nil || n != 0 {
		t.Fatalf("expected poisoned row skipped, got n=%d err=%v", n, err)
	}
	if calls != 0 {
		t.Fatalf("expected no publish attempts, got %d", calls)
	}
}
