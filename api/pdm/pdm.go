package pdm

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PdmSaas/api"
	"PdmSaas/api/constants"
	"PdmSaas/api/pdm/ejecucion"
	"PdmSaas/internal/ledger"
)

// RouterOptions tunes the PDM router.
type RouterOptions struct {
	OrganizationHeader string
	MaxUploadSize      int64
}

// NewRouter wires the PDM routes. Ledger routes require the organization
// header; health and metrics do not.
func NewRouter(svc *ledger.Service, opts RouterOptions) *mux.Router {
	router := mux.NewRouter()
	router.Use(api.RecoverMiddleware)

	router.HandleFunc("/pdm/health", healthHandler(svc)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	ejec := router.PathPrefix("/pdm/ejecucion").Subrouter()
	ejec.Use(api.OrganizationMiddleware(opts.OrganizationHeader))
	ejecucion.NewHandler(svc, opts.MaxUploadSize).Register(ejec)

	return router
}

func healthHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := svc.Store().Ping(ctx); err != nil {
			api.LogError("health check: %v", err)
			api.RespondWithError(w, http.StatusServiceUnavailable, constants.ErrStoreUnavailable)
			return
		}
		api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"status":  "PDM Service is active",
		})
	}
}
