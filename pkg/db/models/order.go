package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/uistaff/invento-backend/pkg/enums"
)

// Order is a purchase order against a vendor for one item.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ItemID           uuid.UUID         `gorm:"column:item_id;type:uuid;not null;index"`
	VendorID         uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null;index"`
	Quantity         int               `gorm:"column:quantity;not null"`
	OrderDate        time.Time         `gorm:"column:order_date;not null"`
	ExpectedDelivery time.Time         `gorm:"column:expected_delivery;not null"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:pending"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
