package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/uistaff/invento-backend/api/responses"
	pkgauth "github.com/uistaff/invento-backend/pkg/auth"
	"github.com/uistaff/invento-backend/pkg/config"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
	pkgredis "github.com/uistaff/invento-backend/pkg/redis"
)

const apiKeyHeader = "X-API-Key"

// Auth establishes the request principal. Machine callers present the
// shared API key and get an unrestricted service principal; everyone
// else needs a bearer token whose jti has not been revoked by logout.
func Auth(jwtCfg config.JWTConfig, svcCfg config.ServiceConfig, revoker pkgredis.TokenRevoker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
				if svcCfg.APIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(svcCfg.APIKey)) != 1 {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key"))
					return
				}
				ctx := pkgauth.WithPrincipal(r.Context(), pkgauth.Principal{ServiceAccount: true})
				if logg != nil {
					ctx = logg.WithField(ctx, "principal", "service")
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(jwtCfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token id"))
				return
			}

			if revoker != nil {
				revoked, err := revoker.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check token revocation"))
					return
				}
				if revoked {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token revoked"))
					return
				}
			}

			principal := pkgauth.Principal{
				UserID:  claims.UserID,
				Role:    claims.Role,
				TokenID: claims.ID,
			}
			if claims.ExpiresAt != nil {
				principal.TokenExpiresAt = claims.ExpiresAt.Time
			}
			ctx := pkgauth.WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
