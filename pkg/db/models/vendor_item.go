package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorItem links a vendor to an item it supplies.
type VendorItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	VendorID  uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index:idx_vendor_items_pair,unique"`
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;not null;index:idx_vendor_items_pair,unique"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
