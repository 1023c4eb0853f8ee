package authn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/internal/users"
	"github.com/uistaff/invento-backend/pkg/auth"
	"github.com/uistaff/invento-backend/pkg/config"
	"github.com/uistaff/invento-backend/pkg/db/models"
	"github.com/uistaff/invento-backend/pkg/enums"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "invento-test",
	ExpirationMinutes: 30,
}

var testPassword = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newFakeRevoker() *fakeRevoker {
	return &fakeRevoker{revoked: map[string]time.Duration{}}
}

func (f *fakeRevoker) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = ttl
	return nil
}

func (f *fakeRevoker) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[jti]
	return ok, nil
}

func newTestService(t *testing.T) (Service, users.Repository, *fakeRevoker) {
	t.Helper()
	dsn := "file:authn_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	repo := users.NewRepository(conn)
	revoker := newFakeRevoker()
	svc, err := NewService(repo, revoker, testJWT, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, revoker
}

func seedUser(t *testing.T, repo users.Repository, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Morgan",
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleUser,
		IsActive:     active,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLogin_IssuesTokenAndRecordsLoginTime(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	seeded := seedUser(t, repo, "morgan@example.com", "hunter2hunter2", true)

	result, err := svc.Login(ctx, LoginInput{Email: "Morgan@Example.com", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a signed token")
	}
	if result.User.PasswordHash != "" {
		t.Fatal("password hash must not leave the service")
	}

	claims, err := auth.ParseAccessToken(testJWT, result.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != seeded.ID {
		t.Fatalf("expected subject %s, got %s", seeded.ID, claims.UserID)
	}
	if claims.Role != enums.UserRoleUser {
		t.Fatalf("expected user role, got %s", claims.Role)
	}

	stored, err := repo.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Fatal("expected last_login_at to be recorded")
	}
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	seedUser(t, repo, "morgan@example.com", "hunter2hunter2", true)

	cases := []struct {
		name  string
		input LoginInput
	}{
		{"wrong password", LoginInput{Email: "morgan@example.com", Password: "wrong"}},
		{"unknown email", LoginInput{Email: "nobody@example.com", Password: "hunter2hunter2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected UNAUTHORIZED, got %v", err)
			}
		})
	}
}

func TestLogin_RejectsDisabledAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)

	seedUser(t, repo, "gone@example.com", "hunter2hunter2", false)

	_, err := svc.Login(context.Background(), LoginInput{Email: "gone@example.com", Password: "hunter2hunter2"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestLogout_RevokesTokenForRemainingTTL(t *testing.T) {
	svc, _, revoker := newTestService(t)
	ctx := context.Background()

	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleUser, TokenID: uuid.NewString()}
	expiresAt := time.Now().Add(20 * time.Minute)

	if err := svc.Logout(ctx, principal, expiresAt); err != nil {
		t.Fatalf("logout: %v", err)
	}

	revoked, err := revoker.IsTokenRevoked(ctx, principal.TokenID)
	if err != nil {
		t.Fatalf("check revoked: %v", err)
	}
	if !revoked {
		t.Fatal("expected token id to be revoked")
	}
	ttl := revoker.revoked[principal.TokenID]
	if ttl <= 0 || ttl > 20*time.Minute {
		t.Fatalf("unexpected revocation ttl %s", ttl)
	}
}

func TestLogout_ExpiredTokenIsNoOp(t *testing.T) {
	svc, _, revoker := newTestService(t)

	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleUser, TokenID: uuid.NewString()}
	if err := svc.Logout(context.Background(), principal, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(revoker.revoked) != 0 {
		t.Fatal("expected no revocation for an expired token")
	}
}
