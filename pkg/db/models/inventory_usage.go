package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/uistaff/invento-backend/pkg/enums"
)

// InventoryUsage is an append-only ledger entry describing one stock
// mutation. ItemName is denormalized at write time so the ledger stays
// readable after an item is renamed or deleted.
type InventoryUsage struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ItemID    uuid.UUID         `gorm:"column:item_id;type:uuid;not null;index"`
	ItemName  string            `gorm:"column:item_name;type:text;not null"`
	UserID    *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	Action    enums.UsageAction `gorm:"column:action;type:text;not null"`
	Quantity  int               `gorm:"column:quantity;not null"`
	Note      string            `gorm:"column:note;type:text"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (InventoryUsage) TableName() string {
	return "inventory_usage"
}
