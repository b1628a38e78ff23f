package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice/internal/audit"
	"backoffice/internal/auth"
	"backoffice/internal/authz"
	"backoffice/internal/models"
)

var (
	errNotSubscribed = errors.New("company not subscribed to product")
	errBadGrant      = errors.New("invalid grant")
)

// grantReq carries the initial or replacement capability grants for one
// product the user's company subscribes to.
type grantReq struct {
	ProductID   int      `json:"product_id"`
	Permissions []string `json:"permissions"`
}

func ListUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := auth.ActorFromContext(r.Context())
		var users []models.User
		q := authz.ScopeToCompany(actor, db.WithContext(r.Context()).Model(&models.User{}), "company_id")
		if err := q.Preload("Company").Order("created_at desc").Find(&users).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, users)
	}
}

func CreateUser(db *gorm.DB, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name      string     `json:"name"`
			Email     string     `json:"email"`
			Password  string     `json:"password"`
			Role      string     `json:"role"`
			CompanyID *uuid.UUID `json:"company_id"`
			Grants    []grantReq `json:"grants"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "malformed body")
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
			respondBadRequest(w, "name, email, and a password of at least 8 characters required")
			return
		}
		role, ok := models.ParseRole(req.Role)
		if !ok {
			respondBadRequest(w, "unknown role")
			return
		}

		actor := auth.ActorFromContext(r.Context())
		companyID := req.CompanyID
		switch actor.Role {
		case models.RoleSuperAdmin:
			// May create anyone anywhere.
		case models.RoleAdmin:
			if role == models.RoleSuperAdmin {
				respondError(w, lg, authz.ErrForbidden)
				return
			}
			if companyID == nil {
				companyID = actor.CompanyID
			}
			if companyID == nil || actor.CompanyID == nil || *companyID != *actor.CompanyID {
				respondError(w, lg, authz.ErrForbidden)
				return
			}
		default:
			respondError(w, lg, authz.ErrForbidden)
			return
		}

		if role == models.RoleSuperAdmin {
			if companyID != nil {
				respondBadRequest(w, "SUPER_ADMIN accounts carry no company")
				return
			}
		} else {
			if companyID == nil {
				respondBadRequest(w, "company_id required for non-SUPER_ADMIN users")
				return
			}
			var c models.Company
			if err := db.WithContext(r.Context()).First(&c, "id = ?", *companyID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					respondBadRequest(w, "company does not exist")
					return
				}
				respondError(w, lg, err)
				return
			}
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		u := models.User{
			Name: req.Name, Email: req.Email, PasswordHash: hash,
			Role: role, Status: models.StatusActive, CompanyID: companyID,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}
		// User and initial grants commit together or not at all.
		err = db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
			if len(req.Grants) > 0 {
				if companyID == nil {
					return errNotSubscribed
				}
				return applyGrants(tx, *companyID, u.ID, req.Grants)
			}
			return nil
		})
		if errors.Is(err, errNotSubscribed) || errors.Is(err, errBadGrant) {
			respondBadRequest(w, err.Error())
			return
		}
		if err != nil {
			respondError(w, lg, err)
			return
		}

		if companyID != nil {
			aid := actor.ID
			rec.Record(r.Context(), audit.Entry{
				Action:    audit.ActionUserCreated,
				AuthorID:  &aid,
				CompanyID: *companyID,
				Details:   map[string]any{"user_id": u.ID, "email": u.Email, "role": u.Role},
			})
		}
		respondJSON(w, http.StatusCreated, map[string]any{"id": u.ID})
	}
}

func UpdateUser(db *gorm.DB, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondBadRequest(w, "invalid user id")
			return
		}
		var req struct {
			Name     *string `json:"name"`
			Email    *string `json:"email"`
			Role     *string `json:"role"`
			Status   *string `json:"status"`
			Password *string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "malformed body")
			return
		}

		var u models.User
		if err := db.WithContext(r.Context()).First(&u, "id = ?", id).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		actor := auth.ActorFromContext(r.Context())
		if err := canManage(actor, u); err != nil {
			respondError(w, lg, err)
			return
		}

		changed := map[string]any{}
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			u.Name = strings.TrimSpace(*req.Name)
			changed["name"] = u.Name
		}
		if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
			u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
			changed["email"] = u.Email
		}
		if req.Role != nil {
			role, ok := models.ParseRole(*req.Role)
			if !ok {
				respondBadRequest(w, "unknown role")
				return
			}
			// Only a SUPER_ADMIN may mint another one, and a tenant-bound
			// account can never become SUPER_ADMIN.
			if role == models.RoleSuperAdmin && (actor.Role != models.RoleSuperAdmin || u.CompanyID != nil) {
				respondError(w, lg, authz.ErrForbidden)
				return
			}
			u.Role = role
			changed["role"] = role
		}
		if req.Status != nil {
			status, ok := models.ParseStatus(*req.Status)
			if !ok {
				respondBadRequest(w, "unknown status")
				return
			}
			u.Status = status
			changed["status"] = status
		}
		if req.Password != nil && *req.Password != "" {
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				respondError(w, lg, err)
				return
			}
			u.PasswordHash = hash
			changed["password"] = "rotated"
		}
		u.UpdatedAt = time.Now()
		if err := db.WithContext(r.Context()).Save(&u).Error; err != nil {
			respondError(w, lg, err)
			return
		}

		if u.CompanyID != nil {
			aid := actor.ID
			rec.Record(r.Context(), audit.Entry{
				Action:    audit.ActionUserUpdated,
				AuthorID:  &aid,
				CompanyID: *u.CompanyID,
				Details:   map[string]any{"user_id": u.ID, "changed": changed},
			})
		}
		respondJSON(w, http.StatusOK, map[string]any{"updated": true})
	}
}

func DeleteUser(db *gorm.DB, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondBadRequest(w, "invalid user id")
			return
		}
		var u models.User
		if err := db.WithContext(r.Context()).First(&u, "id = ?", id).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		actor := auth.ActorFromContext(r.Context())
		if err := canManage(actor, u); err != nil {
			respondError(w, lg, err)
			return
		}
		err = db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ?", id).Delete(&models.UserPermission{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", id).Delete(&models.UserProduct{}).Error; err != nil {
				return err
			}
			// Audit rows referencing this user keep their author_id; the
			// column is nullable and carries no cascading constraint.
			return tx.Delete(&models.User{}, "id = ?", id).Error
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		if u.CompanyID != nil {
			aid := actor.ID
			rec.Record(r.Context(), audit.Entry{
				Action:    audit.ActionUserDeleted,
				AuthorID:  &aid,
				CompanyID: *u.CompanyID,
				Details:   map[string]any{"user_id": u.ID, "email": u.Email},
			})
		}
		respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

// ReplaceGrants swaps a user's product enrollments and capability grants for
// the given set, validating every product against the company's live
// subscriptions inside one transaction.
func ReplaceGrants(db *gorm.DB, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondBadRequest(w, "invalid user id")
			return
		}
		var req struct {
			Grants []grantReq `json:"grants"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "malformed body")
			return
		}
		var u models.User
		if err := db.WithContext(r.Context()).First(&u, "id = ?", id).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		actor := auth.ActorFromContext(r.Context())
		if err := canManage(actor, u); err != nil {
			respondError(w, lg, err)
			return
		}
		if u.CompanyID == nil {
			respondBadRequest(w, "user has no company to grant against")
			return
		}

		err = db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ?", id).Delete(&models.UserPermission{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", id).Delete(&models.UserProduct{}).Error; err != nil {
				return err
			}
			return applyGrants(tx, *u.CompanyID, id, req.Grants)
		})
		if errors.Is(err, errNotSubscribed) || errors.Is(err, errBadGrant) {
			respondBadRequest(w, err.Error())
			return
		}
		if err != nil {
			respondError(w, lg, err)
			return
		}

		aid := actor.ID
		rec.Record(r.Context(), audit.Entry{
			Action:    audit.ActionPermissionsChanged,
			AuthorID:  &aid,
			CompanyID: *u.CompanyID,
			Details:   map[string]any{"user_id": u.ID, "grants": req.Grants},
		})
		respondJSON(w, http.StatusOK, map[string]any{"updated": true})
	}
}

// canManage combines tenant scope with the role ladder: an ADMIN manages
// only ADMIN/USER accounts inside their own tenant; SUPER_ADMIN manages all.
func canManage(actor authz.Actor, target models.User) error {
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	if actor.Role != models.RoleAdmin || target.Role == models.RoleSuperAdmin {
		return authz.ErrForbidden
	}
	if target.CompanyID == nil {
		return authz.ErrForbidden
	}
	return authz.CanAccessCompany(actor, *target.CompanyID)
}

// applyGrants enrolls the user in each product and attaches the requested
// capability grants, all against live CompanyProduct rows.
func applyGrants(tx *gorm.DB, companyID, userID uuid.UUID, grants []grantReq) error {
	for _, g := range grants {
		var cp models.CompanyProduct
		err := tx.Where("company_id = ? AND product_id = ?", companyID, g.ProductID).First(&cp).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: product %d", errNotSubscribed, g.ProductID)
		}
		if err != nil {
			return err
		}
		up := models.UserProduct{UserID: userID, CompanyProductID: cp.ID, CreatedAt: time.Now()}
		if err := tx.Create(&up).Error; err != nil {
			return err
		}
		for _, key := range g.Permissions {
			capab, err := authz.ParseCapability(key)
			if err != nil {
				return fmt.Errorf("%w: %v", errBadGrant, err)
			}
			var perm models.Permission
			if err := tx.Where("action = ? AND subject = ?", string(capab.Action), string(capab.Subject)).First(&perm).Error; err != nil {
				return err
			}
			row := models.UserPermission{
				UserID: userID, CompanyProductID: cp.ID,
				PermissionID: perm.ID, CreatedAt: time.Now(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
