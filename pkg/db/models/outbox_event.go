package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/uistaff/invento-backend/pkg/enums"
)

// OutboxEvent represents an append-only change event written in the
// same transaction as the mutation it describes. The feed watchers
// tail unpublished rows in id order.
type OutboxEvent struct {
	Seq           int64                     `gorm:"column:seq;primaryKey;autoIncrement"`
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;not null;uniqueIndex"`
	Op            enums.ChangeOp            `gorm:"column:op;type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null;index"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}
