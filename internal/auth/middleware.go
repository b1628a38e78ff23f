package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"backoffice/internal/authz"
	"backoffice/internal/models"
	"backoffice/internal/obs"
)

// Authenticate verifies the bearer token and then re-resolves the actor
// against the live user row. Token claims identify the subject; everything
// authorization depends on (role, status, company) comes from the store, so
// a demoted or deactivated user loses access before their token expires.
func Authenticate(db *gorm.DB, tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				deny(w, authz.ErrTokenMissing, "token_missing")
				return
			}
			claims, err := tokens.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				if errors.Is(err, authz.ErrTokenExpired) {
					deny(w, err, "token_expired")
				} else {
					deny(w, err, "token_invalid")
				}
				return
			}

			var u models.User
			err = db.WithContext(r.Context()).First(&u, "id = ?", claims.Subject).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				deny(w, authz.ErrActorNotFound, "actor_not_found")
				return
			}
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if u.Status != models.StatusActive {
				deny(w, authz.ErrActorInactive, "actor_inactive")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), authz.ActorFromUser(u))))
		})
	}
}

// RequireRole gates a route subtree on the operation's role allow-list.
func RequireRole(allowed ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authz.RequireRole(ActorFromContext(r.Context()), allowed...); err != nil {
				deny(w, err, "role_forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, err error, reason string) {
	obs.AuthDenials.WithLabelValues(reason).Inc()
	status := http.StatusUnauthorized
	if errors.Is(err, authz.ErrForbidden) {
		status = http.StatusForbidden
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
}
