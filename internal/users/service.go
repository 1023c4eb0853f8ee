package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/pkg/config"
	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/outbox"
	"github.com/uistaff/invento-backend/pkg/security"
)

// Service manages user accounts.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetBySlackID(ctx context.Context, slackID string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput captures a new account. Role defaults to user.
type CreateInput struct {
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8"`
	Role     enums.UserRole `json:"role"`
	SlackID  string         `json:"slack_id"`
}

// UpdateInput updates account fields. Nil fields are left untouched.
type UpdateInput struct {
	Name     *string         `json:"name"`
	Role     *enums.UserRole `json:"role"`
	SlackID  *string         `json:"slack_id"`
	IsActive *bool           `json:"is_active"`
	Password *string         `json:"password"`
}

type service struct {
	db       *dbpkg.Client
	repo     Repository
	events   *outbox.Service
	password config.PasswordConfig
}

// NewService wires the users service.
func NewService(db *dbpkg.Client, repo Repository, events *outbox.Service, password config.PasswordConfig) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	return &service{db: db, repo: repo, events: events, password: password}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}
	role := input.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		SlackID:      input.SlackID,
		IsActive:     true,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpInsert,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data:          sanitize(user),
		})
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return user, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get user")
	}
	return user, nil
}

func (s *service) GetBySlackID(ctx context.Context, slackID string) (*models.User, error) {
	if strings.TrimSpace(slackID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slack id required")
	}
	user, err := s.repo.GetBySlackID(ctx, slackID)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get user by slack id")
	}
	return user, nil
}

func (s *service) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return users, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", *input.Role))
	}

	var updated *models.User
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
			user.Name = strings.TrimSpace(*input.Name)
		}
		if input.Role != nil {
			user.Role = *input.Role
		}
		if input.SlackID != nil {
			user.SlackID = *input.SlackID
		}
		if input.IsActive != nil {
			user.IsActive = *input.IsActive
		}
		if input.Password != nil {
			hash, err := security.HashPassword(*input.Password, s.password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}
		if err := repo.Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpUpdate,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data:          sanitize(user),
		})
	})
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.ChangeEvent{
			Op:            enums.ChangeOpDelete,
			AggregateType: enums.AggregateUser,
			AggregateID:   id,
			Data:          sanitize(user),
		})
	})
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	return nil
}

// sanitize builds the change-feed view of a user. The password hash
// never leaves the database.
func sanitize(user *models.User) map[string]any {
	return map[string]any{
		"id":         user.ID.String(),
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"slack_id":   user.SlackID,
		"is_active":  user.IsActive,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
}
