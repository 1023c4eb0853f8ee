package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/outbox"
	"github.com/uistaff/invento-backend/pkg/pagination"
)

// broadcastRecipient addresses a notification to every user.
const broadcastRecipient = "all"

// Service defines notification create/list/read operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Notification, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
}

type service struct {
	db     *dbpkg.Client
	repo   Repository
	events *outbox.Service
}

// CreateInput captures a manually created notification.
type CreateInput struct {
	Type      enums.NotificationType `json:"type"`
	Message   string                 `json:"message"`
	Recipient string                 `json:"recipient"`
	ItemID    *uuid.UUID             `json:"item_id"`
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Recipient  string
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(db *dbpkg.Client, repo Repository, events *outbox.Service) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	return &service{db: db, repo: repo, events: events}, nil
}

// BuildLowStock constructs the broadcast alert written when a mutation
// leaves an item at or under its reorder threshold.
func BuildLowStock(item models.InventoryItem, newQuantity int, recipient string) models.Notification {
	if recipient == "" {
		recipient = broadcastRecipient
	}
	itemID := item.ID
	return models.Notification{
		ID:        uuid.New(),
		Type:      enums.NotificationTypeLowStock,
		Message:   fmt.Sprintf("We are low on %s. We have %d left.", item.Name, newQuantity),
		Recipient: recipient,
		ItemID:    &itemID,
	}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Notification, error) {
	if input.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	if input.Type == "" {
		input.Type = enums.NotificationTypeSystem
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid notification type %q", input.Type))
	}
	if input.Recipient == "" {
		input.Recipient = broadcastRecipient
	}

	notification := &models.Notification{
		ID:        uuid.New(),
		Type:      input.Type,
		Message:   input.Message,
		Recipient: input.Recipient,
		ItemID:    input.ItemID,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, notification); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpInsert,
			AggregateType: enums.AggregateNotification,
			AggregateID:   notification.ID,
			Data:          notification,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return notification, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listNotificationsParams{
		Recipient:  params.Recipient,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, recipient, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
