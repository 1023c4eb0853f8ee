package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&event).Error
}

func (r *Repository) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.Where("published_at IS NULL").
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// FetchAfter tails events for one collection past a known sequence
// number. It is the change-stream read used by the feed watchers;
// each watcher owns its cursor so collections fail independently.
func (r *Repository) FetchAfter(aggregateType enums.OutboxAggregateType, afterSeq int64, limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.Where("aggregate_type = ? AND seq > ?", aggregateType, afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// LatestSeq returns the highest sequence number for a collection, or
// zero when it has no events yet.
func (r *Repository) LatestSeq(aggregateType enums.OutboxAggregateType) (int64, error) {
	var seq *int64
	err := r.db.Model(&models.OutboxEvent{}).
		Where("aggregate_type = ?", aggregateType).
		Select("MAX(seq)").
		Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	if seq == nil {
		return 0, nil
	}
	return *seq, nil
}

func (r *Repository) MarkPublished(id uuid.UUID) error {
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": time.Now(),
		}).Error
}

func (r *Repository) MarkFailed(id uuid.UUID, err error) error {
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    err.Error(),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}
