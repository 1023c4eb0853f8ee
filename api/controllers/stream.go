package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uistaff/invento-backend/api/responses"
	"github.com/uistaff/invento-backend/internal/feed"
	pkgauth "github.com/uistaff/invento-backend/pkg/auth"
	"github.com/uistaff/invento-backend/pkg/config"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
	pkgredis "github.com/uistaff/invento-backend/pkg/redis"
)

const streamHeartbeat = 30 * time.Second

// StreamEvents is the realtime SSE endpoint. EventSource cannot set
// headers, so the token also travels as a query parameter; the route
// sits outside the auth middleware and validates here.
func StreamEvents(hub *feed.Hub, jwtCfg config.JWTConfig, revoker pkgredis.TokenRevoker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := streamClaims(r, jwtCfg, revoker)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		clientID := fmt.Sprintf("%s_%d", claims.UserID, time.Now().UnixNano())
		sub := hub.Subscribe(clientID)
		defer hub.Unsubscribe(clientID)

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"client_id": clientID,
				"user_id":   claims.UserID.String(),
			})
			logg.Info(ctx, "realtime client connected")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		fmt.Fprintf(w, "event: connection_status\ndata: {\"status\":\"connected\",\"client_id\":%q}\n\n", clientID)
		flusher.Flush()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				if logg != nil {
					logg.Info(ctx, "realtime client disconnected")
				}
				return
			case event, ok := <-sub.Events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, event.Data)
				flusher.Flush()
			case <-heartbeat.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			}
		}
	}
}

type streamIdentity struct {
	UserID uuid.UUID
}

func streamClaims(r *http.Request, jwtCfg config.JWTConfig, revoker pkgredis.TokenRevoker) (*streamIdentity, error) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			token = strings.TrimSpace(raw[7:])
		}
	}
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgauth.ParseAccessToken(jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if revoker != nil && claims.ID != "" {
		revoked, err := revoker.IsTokenRevoked(r.Context(), claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check token revocation")
		}
		if revoked {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token revoked")
		}
	}
	return &streamIdentity{UserID: claims.UserID}, nil
}
