package controllers

import (
	"net/http"

	"github.com/uistaff/invento-backend/api/responses"
	"github.com/uistaff/invento-backend/pkg/config"
	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
	pkgredis "github.com/uistaff/invento-backend/pkg/redis"
)

const envHeader = "X-Invento-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the backing stores so the orchestrator stops
// routing traffic the moment a dependency drops.
func HealthReady(cfg *config.Config, logg *logger.Logger, db dbpkg.Pinger, cache pkgredis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				checks["db"] = err.Error()
				healthy = false
			} else {
				checks["db"] = "ok"
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
