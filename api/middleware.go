package api

import (
	"net/http"
	"strconv"
	"strings"

	"PdmSaas/api/constants"
)

// OrganizationMiddleware reads the caller's organization from header, which
// the upstream auth gateway sets after authenticating the principal. Requests
// without it are rejected before reaching a handler.
func OrganizationMiddleware(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = constants.DefaultOrganizationHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(header))
			if raw == "" {
				RespondWithError(w, http.StatusUnauthorized, constants.ErrMissingOrganization)
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidOrganization)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOrganizationID(r.Context(), id)))
		})
	}
}

// RecoverMiddleware turns a handler panic into a 500 response.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				LogError("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				RespondWithError(w, http.StatusInternalServerError, constants.ErrInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
