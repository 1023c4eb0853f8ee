package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/internal/inventory"
	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
	"github.com/uistaff/invento-backend/pkg/outbox"
)

// Service manages purchase orders. Marking an order received restocks
// the ordered item through the inventory service so the delivery shows
// up in the usage ledger.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, query ListQuery) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, actorID *uuid.UUID) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput captures a new purchase order.
type CreateInput struct {
	ItemID           uuid.UUID `json:"item_id" validate:"required"`
	VendorID         uuid.UUID `json:"vendor_id" validate:"required"`
	Quantity         int       `json:"quantity" validate:"required,gt=0"`
	OrderDate        time.Time `json:"order_date"`
	ExpectedDelivery time.Time `json:"expected_delivery"`
}

type service struct {
	db        *dbpkg.Client
	repo      Repository
	inventory inventory.Service
	events    *outbox.Service
	logg      *logger.Logger
}

// NewService wires the orders service.
func NewService(
	db *dbpkg.Client,
	repo Repository,
	inventorySvc inventory.Service,
	events *outbox.Service,
	logg *logger.Logger,
) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if inventorySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory service required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	return &service{db: db, repo: repo, inventory: inventorySvc, events: events, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.ItemID == uuid.Nil || input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id and vendor id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if _, err := s.inventory.GetItem(ctx, input.ItemID); err != nil {
		return nil, err
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}
	order := &models.Order{
		ID:               uuid.New(),
		ItemID:           input.ItemID,
		VendorID:         input.VendorID,
		Quantity:         input.Quantity,
		OrderDate:        orderDate,
		ExpectedDelivery: input.ExpectedDelivery,
		Status:           enums.OrderStatusPending,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpInsert,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          order,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, query ListQuery) ([]models.Order, error) {
	orders, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// UpdateStatus moves an order through its lifecycle. Only pending
// orders can transition; received and cancelled are terminal.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, actorID *uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	var updated *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if order.Status == status {
			updated = order
			return nil
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(
				pkgerrors.CodeConflict,
				fmt.Sprintf("order is %s and cannot change to %s", order.Status, status),
			)
		}

		order.Status = status
		if err := repo.Update(ctx, order); err != nil {
			return err
		}

		// The restock shares the order transaction. If the stock side
		// fails the status flip rolls back with it, so the order stays
		// pending and a retry repeats the whole receipt.
		if status == enums.OrderStatusReceived {
			if _, err := s.inventory.RestockStockTx(ctx, tx, inventory.StockMutationInput{
				ItemID:   order.ItemID,
				Quantity: order.Quantity,
				ActorID:  actorID,
				Note:     fmt.Sprintf("order %s received", order.ID),
			}); err != nil {
				return err
			}
		}

		updated = order
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpUpdate,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          order,
		})
	})
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpDelete,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id,
			Data:          order,
		})
	})
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
	}
	return nil
}
