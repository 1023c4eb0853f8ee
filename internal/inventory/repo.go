package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
)

// Repository manages persistence for inventory items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.InventoryItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	// FindByName resolves an item by case-insensitive name match. When
	// several items share a name the oldest wins, so repeated commands
	// hit the same item deterministically.
	FindByName(ctx context.Context, name string) (*models.InventoryItem, error)
	List(ctx context.Context, query ListQuery) ([]models.InventoryItem, error)
	Update(ctx context.Context, item *models.InventoryItem) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ApplyDelta atomically adjusts quantity and recomputes status in a
	// single conditional update. For negative deltas the update only
	// applies when the current quantity covers the decrease; the caller
	// must treat applied=false as an insufficient-stock rejection.
	ApplyDelta(ctx context.Context, id uuid.UUID, delta int) (applied bool, err error)

	Stats(ctx context.Context) (*Stats, error)
}

// Stats summarizes the current inventory state. CheckedOut is the net
// count of trackable items out on loan, derived from the usage ledger.
type Stats struct {
	TotalItems    int64 `json:"total_items"`
	LowStock      int64 `json:"low_stock"`
	OutOfStock    int64 `json:"out_of_stock"`
	TotalQuantity int64 `json:"total_quantity"`
	CheckedOut    int64 `json:"checked_out"`
}

// ListQuery filters and pages item listings.
type ListQuery struct {
	Category string
	Status   enums.ItemStatus
	LowStock bool
	Limit    int
	Offset   int
}

// ErrNotFound signals a missing inventory item.
var ErrNotFound = errors.New("inventory item not found")

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Order("created_at ASC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.InventoryItem, error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryItem{})
	if query.Category != "" {
		q = q.Where("category = ?", query.Category)
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.LowStock {
		q = q.Where("quantity < min_quantity")
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if query.Offset > 0 {
		q = q.Offset(query.Offset)
	}

	var items []models.InventoryItem
	if err := q.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.InventoryItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ApplyDelta(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	query := `UPDATE inventory_items
		SET quantity = quantity + ?,
		    status = CASE WHEN quantity + ? < min_quantity THEN ? ELSE ? END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity + ? >= 0`

	res := r.db.WithContext(ctx).Exec(query,
		delta, delta,
		string(enums.ItemStatusLowStock), string(enums.ItemStatusAvailable),
		id, delta,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := r.db.WithContext(ctx)

	row := db.Model(&models.InventoryItem{}).
		Select(`COUNT(*),
			COALESCE(SUM(CASE WHEN quantity < min_quantity THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN quantity <= 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(quantity), 0)`).
		Row()
	if err := row.Scan(&stats.TotalItems, &stats.LowStock, &stats.OutOfStock, &stats.TotalQuantity); err != nil {
		return nil, err
	}

	err := db.Model(&models.InventoryUsage{}).
		Select(`COALESCE(SUM(CASE WHEN action = ? THEN quantity WHEN action = ? THEN -quantity ELSE 0 END), 0)`,
			enums.UsageActionCheckedOut, enums.UsageActionReturned).
		Scan(&stats.CheckedOut).Error
	if err != nil {
		return nil, err
	}
	if stats.CheckedOut < 0 {
		stats.CheckedOut = 0
	}
	return &stats, nil
}
