package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/pkg/db/models"
)

// UsageRepository manages the append-only usage ledger.
type UsageRepository interface {
	WithTx(tx *gorm.DB) UsageRepository
	Append(ctx context.Context, entry *models.InventoryUsage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryUsage, error)
	List(ctx context.Context, query UsageListQuery) ([]models.InventoryUsage, error)
	SumQuantityByItem(ctx context.Context, itemID uuid.UUID) (int, error)
}

// UsageListQuery filters and pages ledger listings.
type UsageListQuery struct {
	ItemID uuid.UUID
	UserID uuid.UUID
	Limit  int
	Offset int
}

// ErrUsageNotFound signals a missing ledger entry.
var ErrUsageNotFound = errors.New("usage entry not found")

type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository returns a usage ledger repository bound to the provided database.
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) WithTx(tx *gorm.DB) UsageRepository {
	if tx == nil {
		return r
	}
	return &usageRepository{db: tx}
}

func (r *usageRepository) Append(ctx context.Context, entry *models.InventoryUsage) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *usageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryUsage, error) {
	var entry models.InventoryUsage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUsageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *usageRepository) List(ctx context.Context, query UsageListQuery) ([]models.InventoryUsage, error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryUsage{})
	if query.ItemID != uuid.Nil {
		q = q.Where("item_id = ?", query.ItemID)
	}
	if query.UserID != uuid.Nil {
		q = q.Where("user_id = ?", query.UserID)
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if query.Offset > 0 {
		q = q.Offset(query.Offset)
	}

	var entries []models.InventoryUsage
	if err := q.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumQuantityByItem nets the ledger for one item. Decreasing actions
// count negative, increasing actions positive, so the sum mirrors the
// item's total quantity drift since creation.
func (r *usageRepository) SumQuantityByItem(ctx context.Context, itemID uuid.UUID) (int, error) {
	var entries []models.InventoryUsage
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Find(&entries).Error; err != nil {
		return 0, err
	}
	total := 0
	for _, entry := range entries {
		if entry.Action.Decreases() {
			total -= entry.Quantity
		} else {
			total += entry.Quantity
		}
	}
	return total, nil
}
