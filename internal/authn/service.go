package authn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uistaff/invento-backend/internal/users"
	"github.com/uistaff/invento-backend/pkg/auth"
	"github.com/uistaff/invento-backend/pkg/config"
	"github.com/uistaff/invento-backend/pkg/db/models"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
	"github.com/uistaff/invento-backend/pkg/redis"
	"github.com/uistaff/invento-backend/pkg/security"
)

// Service authenticates users and manages token lifecycle. Logout
// revokes the token's id in Redis for its remaining validity, so a
// stolen token stops working the moment its owner signs out.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, principal auth.Principal, expiresAt time.Time) error
}

// LoginInput carries the credential pair.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult returns the signed token plus the authenticated account.
type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type service struct {
	repo    users.Repository
	revoker redis.TokenRevoker
	jwt     config.JWTConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the authentication service.
func NewService(repo users.Repository, revoker redis.TokenRevoker, jwt config.JWTConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if revoker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "token revoker required")
	}
	return &service{repo: repo, revoker: revoker, jwt: jwt, logg: logg, now: time.Now}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is disabled")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	lastLogin := now
	user.LastLoginAt = &lastLogin
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record login time")
	}

	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, user.ID.String())
		s.logg.Info(logCtx, "user logged in")
	}

	user.PasswordHash = ""
	return &LoginResult{Token: token, User: *user}, nil
}

func (s *service) Logout(ctx context.Context, principal auth.Principal, expiresAt time.Time) error {
	if principal.TokenID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token id required")
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired; nothing to revoke.
		return nil
	}
	if err := s.revoker.RevokeToken(ctx, principal.TokenID, ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke token")
	}

	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, principal.UserID.String())
		s.logg.Info(logCtx, "user logged out")
	}
	return nil
}
