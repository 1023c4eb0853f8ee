package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/internal/notifications"
	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
	"github.com/uistaff/invento-backend/pkg/outbox"
)

// Service defines inventory item CRUD plus the atomic stock mutations.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	GetItemByName(ctx context.Context, name string) (*models.InventoryItem, error)
	ListItems(ctx context.Context, query ListQuery) ([]models.InventoryItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	ConsumeStock(ctx context.Context, input StockMutationInput) (*MutationResult, error)
	RestockStock(ctx context.Context, input StockMutationInput) (*MutationResult, error)
	// RestockStockTx applies a restock inside a caller-owned transaction
	// so it commits or rolls back together with the caller's writes.
	RestockStockTx(ctx context.Context, tx *gorm.DB, input StockMutationInput) (*MutationResult, error)

	ListUsage(ctx context.Context, query UsageListQuery) ([]models.InventoryUsage, error)
	CorrectUsage(ctx context.Context, usageID uuid.UUID, input CorrectUsageInput) (*models.InventoryUsage, error)

	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	db             *dbpkg.Client
	repo           Repository
	usage          UsageRepository
	notifRepo      notifications.Repository
	events         *outbox.Service
	logg           *logger.Logger
	alertRecipient string
}

// CreateItemInput captures a new item definition.
type CreateItemInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"`
	Unit        string `json:"unit"`
	Location    string `json:"location"`
	Condition   string `json:"condition"`
	Description string `json:"description"`
}

// UpdateItemInput updates item metadata. Nil fields are left untouched;
// quantity changes go through Consume/Restock, not here.
type UpdateItemInput struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	MinQuantity *int    `json:"min_quantity"`
	Unit        *string `json:"unit"`
	Location    *string `json:"location"`
	Condition   *string `json:"condition"`
	Description *string `json:"description"`
}

// StockMutationInput identifies an item by id or name and the amount to
// move. Action is optional; when empty it is selected from the item's
// category.
type StockMutationInput struct {
	ItemID   uuid.UUID
	Name     string
	Quantity int
	Action   enums.UsageAction
	ActorID  *uuid.UUID
	Note     string
}

// CorrectUsageInput amends a ledger entry's quantity. The item quantity
// is compensated by the difference so ledger and stock stay consistent.
type CorrectUsageInput struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

// MutationResult reports the state after a stock mutation.
type MutationResult struct {
	Item         models.InventoryItem  `json:"item"`
	Usage        models.InventoryUsage `json:"usage"`
	LowStock     bool                  `json:"low_stock"`
	OutOfStock   bool                  `json:"out_of_stock"`
	Notification *models.Notification  `json:"notification,omitempty"`
}

// NewService wires inventory dependencies.
func NewService(
	db *dbpkg.Client,
	repo Repository,
	usage UsageRepository,
	notifRepo notifications.Repository,
	events *outbox.Service,
	logg *logger.Logger,
	alertRecipient string,
) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if usage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "usage repository required")
	}
	if notifRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	return &service{
		db:             db,
		repo:           repo,
		usage:          usage,
		notifRepo:      notifRepo,
		events:         events,
		logg:           logg,
		alertRecipient: alertRecipient,
	}, nil
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Quantity < 0 || input.MinQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity and min_quantity must be non-negative")
	}
	category := input.Category
	if category == "" {
		category = "Uncategorized"
	}

	item := &models.InventoryItem{
		ID:          uuid.New(),
		Name:        name,
		Category:    category,
		Quantity:    input.Quantity,
		MinQuantity: input.MinQuantity,
		Unit:        input.Unit,
		Location:    input.Location,
		Status:      enums.StatusForQuantity(input.Quantity, input.MinQuantity),
		Condition:   input.Condition,
		Description: input.Description,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, item); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpInsert,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   item.ID,
			Data:          item,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
	}
	return item, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get inventory item")
	}
	return item, nil
}

func (s *service) GetItemByName(ctx context.Context, name string) (*models.InventoryItem, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	item, err := s.repo.FindByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %q not found", name))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory item")
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, query ListQuery) ([]models.InventoryItem, error) {
	items, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}
	return items, nil
}

func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.MinQuantity != nil && *input.MinQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_quantity must be non-negative")
	}

	var updated *models.InventoryItem
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
			item.Name = strings.TrimSpace(*input.Name)
		}
		if input.Category != nil {
			item.Category = *input.Category
		}
		if input.MinQuantity != nil {
			item.MinQuantity = *input.MinQuantity
		}
		if input.Unit != nil {
			item.Unit = *input.Unit
		}
		if input.Location != nil {
			item.Location = *input.Location
		}
		if input.Condition != nil {
			item.Condition = *input.Condition
		}
		if input.Description != nil {
			item.Description = *input.Description
		}
		item.Status = enums.StatusForQuantity(item.Quantity, item.MinQuantity)

		if err := repo.Update(ctx, item); err != nil {
			return err
		}
		updated = item
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpUpdate,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   item.ID,
			Data:          item,
		})
	})
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
	}

	// Raising the minimum can push a healthy item under its threshold,
	// which deserves the same alert a consume would have raised.
	if input.MinQuantity != nil && updated.Status == enums.ItemStatusLowStock {
		s.emitLowStockAlert(ctx, *updated)
	}
	return updated, nil
}

func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpDelete,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   id,
			Data:          item,
		})
	})
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory item")
	}
	return nil
}

// ConsumeStock removes stock from an item. The quantity check and the
// decrement happen in one conditional update, so concurrent consumers
// can never drive the quantity negative; losers of the race get an
// insufficient-stock rejection with the then-current quantity.
func (s *service) ConsumeStock(ctx context.Context, input StockMutationInput) (*MutationResult, error) {
	if input.Action != "" && !input.Action.Decreases() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("action %q does not consume stock", input.Action))
	}
	return s.mutateStock(ctx, input, true)
}

// RestockStock adds stock to an item.
func (s *service) RestockStock(ctx context.Context, input StockMutationInput) (*MutationResult, error) {
	if input.Action != "" && input.Action.Decreases() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("action %q does not restock", input.Action))
	}
	return s.mutateStock(ctx, input, false)
}

// RestockStockTx is the restock path for callers that already hold a
// transaction, such as an order receipt that must flip the order and
// add the stock as one unit.
func (s *service) RestockStockTx(ctx context.Context, tx *gorm.DB, input StockMutationInput) (*MutationResult, error) {
	if input.Action != "" && input.Action.Decreases() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("action %q does not restock", input.Action))
	}
	result, err := s.mutateStockTx(ctx, tx, input, false)
	if err != nil {
		return nil, mapMutationError(err)
	}
	return result, nil
}

func (s *service) mutateStock(ctx context.Context, input StockMutationInput, consume bool) (*MutationResult, error) {
	var result *MutationResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.mutateStockTx(ctx, tx, input, consume)
		return txErr
	})
	if err != nil {
		return nil, mapMutationError(err)
	}

	// Alerting happens after the mutation has committed. A notification
	// store failure is logged and swallowed; the consume stands.
	if consume && result.LowStock {
		result.Notification = s.emitLowStockAlert(ctx, result.Item)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"item_id":  result.Item.ID.String(),
			"action":   result.Usage.Action,
			"quantity": result.Usage.Quantity,
		})
		s.logg.Info(logCtx, "stock mutation applied")
	}
	return result, nil
}

func (s *service) mutateStockTx(ctx context.Context, tx *gorm.DB, input StockMutationInput, consume bool) (*MutationResult, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.ItemID == uuid.Nil && strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id or name required")
	}

	repo := s.repo.WithTx(tx)

	item, err := s.resolveItem(ctx, repo, input)
	if err != nil {
		return nil, err
	}

	action := input.Action
	if action == "" {
		if consume {
			action = enums.ConsumeActionFor(item.Category)
		} else {
			action = enums.RestockActionFor(item.Category)
		}
	}

	delta := input.Quantity
	if consume {
		delta = -input.Quantity
	}

	applied, err := repo.ApplyDelta(ctx, item.ID, delta)
	if err != nil {
		return nil, err
	}
	if !applied {
		current, readErr := repo.GetByID(ctx, item.ID)
		if readErr != nil {
			return nil, readErr
		}
		return nil, pkgerrors.New(
			pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("Insufficient quantity for %s. Current: %d, Requested: %d", current.Name, current.Quantity, input.Quantity),
		).WithDetails(map[string]any{
			"item_id":   current.ID.String(),
			"current":   current.Quantity,
			"requested": input.Quantity,
		})
	}

	// Re-read inside the transaction; the row lock from the update
	// guarantees we see the value we just wrote.
	updated, err := repo.GetByID(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	entry := &models.InventoryUsage{
		ID:       uuid.New(),
		ItemID:   updated.ID,
		ItemName: updated.Name,
		UserID:   input.ActorID,
		Action:   action,
		Quantity: input.Quantity,
		Note:     input.Note,
	}
	if err := s.usage.WithTx(tx).Append(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.events.Emit(ctx, tx, outbox.ChangeEvent{
		Op:            enums.ChangeOpUpdate,
		AggregateType: enums.AggregateInventoryItem,
		AggregateID:   updated.ID,
		Data:          updated,
	}); err != nil {
		return nil, err
	}
	if err := s.events.Emit(ctx, tx, outbox.ChangeEvent{
		Op:            enums.ChangeOpInsert,
		AggregateType: enums.AggregateInventoryUsage,
		AggregateID:   entry.ID,
		Data:          entry,
	}); err != nil {
		return nil, err
	}

	return &MutationResult{
		Item:       *updated,
		Usage:      *entry,
		LowStock:   updated.Quantity <= updated.MinQuantity,
		OutOfStock: updated.Quantity <= 0,
	}, nil
}

func mapMutationError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply stock mutation")
}

// emitLowStockAlert persists the low-stock notification in its own
// transaction, decoupled from whatever mutation triggered it. Returns
// nil when the store rejects it; the caller carries on either way.
func (s *service) emitLowStockAlert(ctx context.Context, item models.InventoryItem) *models.Notification {
	notification := notifications.BuildLowStock(item, item.Quantity, s.alertRecipient)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.notifRepo.WithTx(tx).Create(ctx, &notification); err != nil {
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
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"item_id": item.ID.String(),
				"item":    item.Name,
			})
			s.logg.Error(logCtx, "low stock alert failed", err)
		}
		return nil
	}
	return &notification
}

func (s *service) resolveItem(ctx context.Context, repo Repository, input StockMutationInput) (*models.InventoryItem, error) {
	if input.ItemID != uuid.Nil {
		return repo.GetByID(ctx, input.ItemID)
	}
	return repo.FindByName(ctx, input.Name)
}

func (s *service) ListUsage(ctx context.Context, query UsageListQuery) ([]models.InventoryUsage, error) {
	entries, err := s.usage.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list usage entries")
	}
	return entries, nil
}

// CorrectUsage amends a ledger entry after the fact. The item quantity
// is adjusted by the signed difference so the ledger sum still nets to
// the item's drift.
func (s *service) CorrectUsage(ctx context.Context, usageID uuid.UUID, input CorrectUsageInput) (*models.InventoryUsage, error) {
	if usageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var corrected *models.InventoryUsage
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		usageRepo := s.usage.WithTx(tx)
		repo := s.repo.WithTx(tx)

		entry, err := usageRepo.GetByID(ctx, usageID)
		if err != nil {
			return err
		}

		diff := input.Quantity - entry.Quantity
		if diff != 0 {
			// A bigger consumption means more stock left the shelf,
			// so the item delta has the opposite sign of the entry's
			// direction.
			delta := diff
			if entry.Action.Decreases() {
				delta = -diff
			}
			applied, err := repo.ApplyDelta(ctx, entry.ItemID, delta)
			if err != nil {
				return err
			}
			if !applied {
				current, readErr := repo.GetByID(ctx, entry.ItemID)
				if readErr != nil {
					return readErr
				}
				return pkgerrors.New(
					pkgerrors.CodeInsufficientStock,
					fmt.Sprintf("Insufficient quantity for %s. Current: %d, Requested: %d", current.Name, current.Quantity, diff),
				)
			}
		}

		update := map[string]any{"quantity": input.Quantity}
		if input.Note != "" {
			update["note"] = input.Note
		}
		if err := tx.WithContext(ctx).Model(&models.InventoryUsage{}).
			Where("id = ?", usageID).
			Updates(update).Error; err != nil {
			return err
		}

		entry, err = usageRepo.GetByID(ctx, usageID)
		if err != nil {
			return err
		}
		corrected = entry

		updatedItem, err := repo.GetByID(ctx, entry.ItemID)
		if err != nil {
			return err
		}
		if err := s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpUpdate,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   updatedItem.ID,
			Data:          updatedItem,
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpUpdate,
			AggregateType: enums.AggregateInventoryUsage,
			AggregateID:   entry.ID,
			Data:          entry,
		})
	})
	if errors.Is(err, ErrUsageNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "usage entry not found")
	}
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "correct usage entry")
	}
	return corrected, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute inventory stats")
	}
	return stats, nil
}
