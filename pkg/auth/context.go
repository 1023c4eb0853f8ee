package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/uistaff/invento-backend/pkg/enums"
)

type contextKey string

const principalKey contextKey = "auth_principal"

// Principal describes the authenticated caller for a request. Service
// accounts authenticate with the shared API key and carry no user id;
// they bypass role checks.
type Principal struct {
	UserID         uuid.UUID
	Role           enums.UserRole
	TokenID        string
	TokenExpiresAt time.Time
	ServiceAccount bool
}

// IsAdmin reports whether the principal may perform admin-only operations.
func (p Principal) IsAdmin() bool {
	return p.ServiceAccount || p.Role == enums.UserRoleAdmin
}

// WithPrincipal attaches the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal attached by the auth middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
