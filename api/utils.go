package api

import (
	"encoding/json"
	"net/http"

	"PdmSaas/api/constants"
	"PdmSaas/internal/logger"
)

// RespondWithJSON writes payload with the given status.
func RespondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		LogError("encode response: %v", err)
	}
}

// Error response helper
func RespondWithError(w http.ResponseWriter, status int, errMsg string) {
	LogError("%d %s", status, errMsg)
	RespondWithJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   errMsg,
	})
}

// RespondWithPayload sends a consistent JSON response and includes an arbitrary payload
func RespondWithPayload(w http.ResponseWriter, success bool, errMsg string, payload interface{}) {
	resp := map[string]interface{}{"success": success}
	if !success && errMsg != "" {
		resp["error"] = errMsg
	}
	if payload != nil {
		// use a conventional key `rows` for list payloads
		resp["rows"] = payload
	}
	status := http.StatusOK
	if !success {
		status = http.StatusBadRequest
	}
	RespondWithJSON(w, status, resp)
}

// RespondWithPage sends a list payload together with its pagination stats.
func RespondWithPage(w http.ResponseWriter, rows interface{}, pagination interface{}) {
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"rows":       rows,
		"pagination": pagination,
	})
}

// LogInfo logs an informational message (wrapper for consistent logging)
func LogInfo(msg string, args ...interface{}) {
	if len(args) > 0 {
		logger.L().Infof(msg, args...)
	} else {
		logger.L().Info(msg)
	}
}

// LogError logs an error message (wrapper for consistent logging)
func LogError(msg string, args ...interface{}) {
	if len(args) > 0 {
		logger.L().Errorf(msg, args...)
	} else {
		logger.L().Error(msg)
	}
}
