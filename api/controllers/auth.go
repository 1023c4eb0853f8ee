package controllers

import (
	"net/http"

	"github.com/uistaff/invento-backend/api/responses"
	"github.com/uistaff/invento-backend/api/validators"
	"github.com/uistaff/invento-backend/internal/authn"
	pkgauth "github.com/uistaff/invento-backend/pkg/auth"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
)

func AuthLogin(svc authn.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input authn.LoginInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Login(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthLogout revokes the caller's token id for its remaining lifetime.
// Service principals have nothing to revoke.
func AuthLogout(svc authn.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := pkgauth.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		if principal.ServiceAccount {
			responses.WriteSuccess(w, map[string]string{"status": "ok"})
			return
		}
		if err := svc.Logout(r.Context(), principal, principal.TokenExpiresAt); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
