package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/uistaff/invento-backend/pkg/enums"
)

// Notification stores in-app alert payloads. Recipient is "all" for
// broadcast alerts or a user id rendered as text.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Type      enums.NotificationType `gorm:"column:type;type:text;not null"`
	Message   string                 `gorm:"column:message;type:text;not null"`
	Recipient string                 `gorm:"column:recipient;type:text;not null;default:all"`
	ItemID    *uuid.UUID             `gorm:"column:item_id;type:uuid"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
