package vendors

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/outbox"
)

// Service manages vendors and the vendor-item catalog.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Vendor, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	List(ctx context.Context, limit, offset int) ([]models.Vendor, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Vendor, error)
	Delete(ctx context.Context, id uuid.UUID) error

	LinkItem(ctx context.Context, vendorID, itemID uuid.UUID) (*models.VendorItem, error)
	UnlinkItem(ctx context.Context, linkID uuid.UUID) error
	ListItems(ctx context.Context, vendorID uuid.UUID) ([]models.VendorItem, error)
}

// CreateInput captures a new vendor record.
type CreateInput struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
}

// UpdateInput updates vendor fields. Nil fields are left untouched.
type UpdateInput struct {
	Name    *string `json:"name"`
	Contact *string `json:"contact"`
	Phone   *string `json:"phone"`
}

type service struct {
	db     *dbpkg.Client
	repo   Repository
	events *outbox.Service
}

// NewService wires the vendors service.
func NewService(db *dbpkg.Client, repo Repository, events *outbox.Service) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vendors repository required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	return &service{db: db, repo: repo, events: events}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Vendor, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	vendor := &models.Vendor{
		ID:      uuid.New(),
		Name:    name,
		Contact: input.Contact,
		Phone:   input.Phone,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, vendor); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpInsert,
			AggregateType: enums.AggregateVendor,
			AggregateID:   vendor.ID,
			Data:          vendor,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}
	return vendor, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	vendor, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get vendor")
	}
	return vendor, nil
}

func (s *service) List(ctx context.Context, limit, offset int) ([]models.Vendor, error) {
	vendors, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	return vendors, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Vendor, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	var updated *models.Vendor
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		vendor, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
			vendor.Name = strings.TrimSpace(*input.Name)
		}
		if input.Contact != nil {
			vendor.Contact = *input.Contact
		}
		if input.Phone != nil {
			vendor.Phone = *input.Phone
		}
		if err := repo.Update(ctx, vendor); err != nil {
			return err
		}
		updated = vendor
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpUpdate,
			AggregateType: enums.AggregateVendor,
			AggregateID:   vendor.ID,
			Data:          vendor,
		})
	})
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		vendor, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpDelete,
			AggregateType: enums.AggregateVendor,
			AggregateID:   id,
			Data:          vendor,
		})
	})
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vendor")
	}
	return nil
}

func (s *service) LinkItem(ctx context.Context, vendorID, itemID uuid.UUID) (*models.VendorItem, error) {
	if vendorID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id and item id required")
	}

	link := &models.VendorItem{
		ID:       uuid.New(),
		VendorID: vendorID,
		ItemID:   itemID,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).LinkItem(ctx, link); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpInsert,
			AggregateType: enums.AggregateVendorItem,
			AggregateID:   link.ID,
			Data:          link,
		})
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor already supplies this item")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link vendor item")
	}
	return link, nil
}

func (s *service) UnlinkItem(ctx context.Context, linkID uuid.UUID) error {
	if linkID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "link id required")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UnlinkItem(ctx, linkID); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpDelete,
			AggregateType: enums.AggregateVendorItem,
			AggregateID:   linkID,
			Data:          map[string]any{"id": linkID.String()},
		})
	})
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor item link not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlink vendor item")
	}
	return nil
}

func (s *service) ListItems(ctx context.Context, vendorID uuid.UUID) ([]models.VendorItem, error) {
	links, err := s.repo.ListItems(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor items")
	}
	return links, nil
}
