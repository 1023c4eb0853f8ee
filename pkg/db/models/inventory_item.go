package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/uistaff/invento-backend/pkg/enums"
)

// InventoryItem is a tracked stock line. Status is derived from
// quantity against the reorder threshold and recomputed on every
// mutation; quantity never goes negative.
type InventoryItem struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name        string           `gorm:"column:name;type:text;not null;index"`
	Category    string           `gorm:"column:category;type:text;not null;default:Uncategorized"`
	Quantity    int              `gorm:"column:quantity;not null;default:0"`
	MinQuantity int              `gorm:"column:min_quantity;not null;default:0"`
	Unit        string           `gorm:"column:unit;type:text"`
	Location    string           `gorm:"column:location;type:text"`
	Status      enums.ItemStatus `gorm:"column:status;type:text;not null"`
	Condition   string           `gorm:"column:condition;type:text"`
	Description string           `gorm:"column:description;type:text"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
