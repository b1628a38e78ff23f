package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice/internal/authz"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// respondError maps the core error taxonomy onto HTTP in one place. Messages
// stay role-agnostic: the caller learns the class of failure, never which
// internal lookup missed.
func respondError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	code := "INTERNAL"
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, authz.ErrInvalidCredentials):
		code, status = "INVALID_CREDENTIALS", http.StatusUnauthorized
	case errors.Is(err, authz.ErrTokenMissing):
		code, status = "TOKEN_MISSING", http.StatusUnauthorized
	case errors.Is(err, authz.ErrTokenExpired):
		code, status = "TOKEN_EXPIRED", http.StatusUnauthorized
	case errors.Is(err, authz.ErrTokenInvalid):
		code, status = "TOKEN_INVALID", http.StatusUnauthorized
	case errors.Is(err, authz.ErrActorNotFound):
		code, status = "ACTOR_NOT_FOUND", http.StatusUnauthorized
	case errors.Is(err, authz.ErrActorInactive):
		code, status = "ACTOR_INACTIVE", http.StatusUnauthorized
	case errors.Is(err, authz.ErrForbidden):
		code, status = "FORBIDDEN", http.StatusForbidden
	case errors.Is(err, authz.ErrPermissionDenied):
		code, status = "PERMISSION_DENIED", http.StatusForbidden
	case errors.Is(err, authz.ErrInvalidTenantConfiguration):
		// Data-integrity fault, not a user error. The full detail goes to
		// the operator log only.
		lg.Errorw("tenant configuration fault", "error", err)
		code, status = "INVALID_TENANT_CONFIGURATION", http.StatusInternalServerError
	case errors.Is(err, gorm.ErrRecordNotFound):
		code, status = "NOT_FOUND", http.StatusNotFound
	default:
		lg.Errorw("request failed", "error", err)
	}
	respondJSON(w, status, map[string]any{"error": code})
}

func respondBadRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, map[string]any{"error": "BAD_REQUEST", "message": msg})
}
