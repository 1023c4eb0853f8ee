package vendors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/pkg/db/models"
)

// Repository manages persistence for vendors and their supplied items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vendor *models.Vendor) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	List(ctx context.Context, limit, offset int) ([]models.Vendor, error)
	Update(ctx context.Context, vendor *models.Vendor) error
	Delete(ctx context.Context, id uuid.UUID) error

	LinkItem(ctx context.Context, link *models.VendorItem) error
	UnlinkItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, vendorID uuid.UUID) ([]models.VendorItem, error)
}

// ErrNotFound signals a missing vendor or vendor-item link.
var ErrNotFound = errors.New("vendor not found")

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vendors repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]models.Vendor, error) {
	q := r.db.WithContext(ctx).Model(&models.Vendor{})
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var vendors []models.Vendor
	if err := q.Order("created_at ASC").Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *repository) Update(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Save(vendor).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Vendor{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) LinkItem(ctx context.Context, link *models.VendorItem) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) UnlinkItem(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.VendorItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListItems(ctx context.Context, vendorID uuid.UUID) ([]models.VendorItem, error) {
	var links []models.VendorItem
	q := r.db.WithContext(ctx).Model(&models.VendorItem{})
	if vendorID != uuid.Nil {
		q = q.Where("vendor_id = ?", vendorID)
	}
	if err := q.Order("created_at ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}
