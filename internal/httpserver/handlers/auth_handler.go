package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice/internal/audit"
	"backoffice/internal/auth"
	"backoffice/internal/models"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a signed session token. The issuer never
// says whether the email or the password was wrong.
func Login(issuer *auth.Issuer, lim *LoginLimiter, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !lim.allow(r.RemoteAddr) {
			respondJSON(w, http.StatusTooManyRequests, map[string]any{"error": "RATE_LIMITED"})
			return
		}
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "malformed body")
			return
		}
		if req.Email == "" || req.Password == "" {
			respondBadRequest(w, "email and password required")
			return
		}
		sess, err := issuer.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		body := map[string]any{
			"token":      sess.Token,
			"expires_at": sess.ExpiresAt,
			"user": map[string]any{
				"id": sess.User.ID, "name": sess.User.Name,
				"email": sess.User.Email, "role": sess.User.Role,
			},
		}
		if sess.Company != nil {
			body["company"] = map[string]any{"id": sess.Company.ID, "name": sess.Company.Name}
		}
		respondJSON(w, http.StatusOK, body)
	}
}

// Me returns the live resolved actor, not the token claims.
func Me(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := auth.ActorFromContext(r.Context())
		var u models.User
		if err := db.WithContext(r.Context()).Preload("Company").First(&u, "id = ?", actor.ID).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, u)
	}
}

// ChangePassword lets an actor rotate their own credential. The current
// password must check out first.
func ChangePassword(db *gorm.DB, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Current string `json:"current_password"`
			New     string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "malformed body")
			return
		}
		if len(req.New) < 8 {
			respondBadRequest(w, "new password must be at least 8 characters")
			return
		}
		actor := auth.ActorFromContext(r.Context())
		var u models.User
		if err := db.WithContext(r.Context()).First(&u, "id = ?", actor.ID).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Current); err != nil {
			respondJSON(w, http.StatusUnauthorized, map[string]any{"error": "INVALID_CREDENTIALS"})
			return
		}
		hash, err := auth.HashPassword(req.New)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		u.PasswordHash = hash
		u.UpdatedAt = time.Now()
		if err := db.WithContext(r.Context()).Save(&u).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		// A SUPER_ADMIN rotating their own credential affects no tenant,
		// so there is no company to attribute the entry to.
		if u.CompanyID != nil {
			aid := actor.ID
			rec.Record(r.Context(), audit.Entry{
				Action:    audit.ActionPasswordChanged,
				AuthorID:  &aid,
				CompanyID: *u.CompanyID,
			})
		}
		respondJSON(w, http.StatusOK, map[string]any{"updated": true})
	}
}
