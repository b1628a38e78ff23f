package handlers

import (
	"encoding/json"
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

func ListCompanies(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := auth.ActorFromContext(r.Context())
		var cs []models.Company
		q := authz.ScopeToCompany(actor, db.WithContext(r.Context()).Model(&models.Company{}), "id")
		if err := q.Order("created_at desc").Find(&cs).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, cs)
	}
}

func CreateCompany(db *gorm.DB, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  string `json:"name"`
			TaxID string `json:"tax_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "malformed body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.TaxID = strings.TrimSpace(req.TaxID)
		if req.Name == "" || req.TaxID == "" {
			respondBadRequest(w, "name and tax_id required")
			return
		}
		c := models.Company{Name: req.Name, TaxID: req.TaxID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := db.WithContext(r.Context()).Create(&c).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		actor := auth.ActorFromContext(r.Context())
		aid := actor.ID
		rec.Record(r.Context(), audit.Entry{
			Action:    audit.ActionCompanyCreated,
			AuthorID:  &aid,
			CompanyID: c.ID,
			Details:   map[string]any{"name": c.Name, "tax_id": c.TaxID},
		})
		respondJSON(w, http.StatusCreated, c)
	}
}

func GetCompany(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondBadRequest(w, "invalid company id")
			return
		}
		actor := auth.ActorFromContext(r.Context())
		if err := authz.CanAccessCompany(actor, id); err != nil {
			respondError(w, lg, err)
			return
		}
		var c models.Company
		if err := db.WithContext(r.Context()).First(&c, "id = ?", id).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		var subs []models.CompanyProduct
		if err := db.WithContext(r.Context()).Where("company_id = ?", id).Find(&subs).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		productIDs := make([]int, 0, len(subs))
		for _, s := range subs {
			productIDs = append(productIDs, s.ProductID)
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"id": c.ID, "name": c.Name, "tax_id": c.TaxID,
			"subscribed_products": productIDs,
			"created_at":          c.CreatedAt, "updated_at": c.UpdatedAt,
		})
	}
}

func UpdateCompany(db *gorm.DB, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondBadRequest(w, "invalid company id")
			return
		}
		actor := auth.ActorFromContext(r.Context())
		if err := authz.CanAccessCompany(actor, id); err != nil {
			respondError(w, lg, err)
			return
		}
		var req struct {
			Name  *string `json:"name"`
			TaxID *string `json:"tax_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "malformed body")
			return
		}
		var c models.Company
		if err := db.WithContext(r.Context()).First(&c, "id = ?", id).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		changed := map[string]any{}
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			c.Name = strings.TrimSpace(*req.Name)
			changed["name"] = c.Name
		}
		if req.TaxID != nil && strings.TrimSpace(*req.TaxID) != "" {
			c.TaxID = strings.TrimSpace(*req.TaxID)
			changed["tax_id"] = c.TaxID
		}
		c.UpdatedAt = time.Now()
		if err := db.WithContext(r.Context()).Save(&c).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		aid := actor.ID
		rec.Record(r.Context(), audit.Entry{
			Action:    audit.ActionCompanyUpdated,
			AuthorID:  &aid,
			CompanyID: c.ID,
			Details:   changed,
		})
		respondJSON(w, http.StatusOK, map[string]any{"updated": true})
	}
}

// DeleteCompany removes a tenant and everything hanging off it in one
// transaction. Audit rows for the tenant stay behind untouched.
func DeleteCompany(db *gorm.DB, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondBadRequest(w, "invalid company id")
			return
		}
		var c models.Company
		if err := db.WithContext(r.Context()).First(&c, "id = ?", id).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		err = db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
			var cpIDs []uuid.UUID
			if err := tx.Model(&models.CompanyProduct{}).Where("company_id = ?", id).Pluck("id", &cpIDs).Error; err != nil {
				return err
			}
			if len(cpIDs) > 0 {
				if err := tx.Where("company_product_id IN ?", cpIDs).Delete(&models.UserPermission{}).Error; err != nil {
					return err
				}
				if err := tx.Where("company_product_id IN ?", cpIDs).Delete(&models.UserProduct{}).Error; err != nil {
					return err
				}
				if err := tx.Where("company_id = ?", id).Delete(&models.CompanyProduct{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("company_id = ?", id).Delete(&models.User{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Company{}, "id = ?", id).Error
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		actor := auth.ActorFromContext(r.Context())
		aid := actor.ID
		rec.Record(r.Context(), audit.Entry{
			Action:    audit.ActionCompanyDeleted,
			AuthorID:  &aid,
			CompanyID: id,
			Details:   map[string]any{"name": c.Name},
		})
		respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

// ReconcileSubscriptions replaces a company's product subscriptions with the
// requested set. Removing a subscription cascades into dependent UserProduct
// and UserPermission rows inside the same transaction, so no window exists
// where a revoked product still has live grants.
func ReconcileSubscriptions(db *gorm.DB, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondBadRequest(w, "invalid company id")
			return
		}
		actor := auth.ActorFromContext(r.Context())
		if err := authz.CanAccessCompany(actor, id); err != nil {
			respondError(w, lg, err)
			return
		}
		var req struct {
			ProductIDs []int `json:"product_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "malformed body")
			return
		}
		var c models.Company
		if err := db.WithContext(r.Context()).First(&c, "id = ?", id).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		var count int64
		if len(req.ProductIDs) > 0 {
			if err := db.WithContext(r.Context()).Model(&models.Product{}).Where("id IN ?", req.ProductIDs).Count(&count).Error; err != nil {
				respondError(w, lg, err)
				return
			}
			if count != int64(len(req.ProductIDs)) {
				respondBadRequest(w, "unknown product id")
				return
			}
		}

		wanted := make(map[int]bool, len(req.ProductIDs))
		for _, pid := range req.ProductIDs {
			wanted[pid] = true
		}
		var added, removed []int
		err = db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
			var current []models.CompanyProduct
			if err := tx.Where("company_id = ?", id).Find(&current).Error; err != nil {
				return err
			}
			have := make(map[int]uuid.UUID, len(current))
			for _, cp := range current {
				have[cp.ProductID] = cp.ID
			}
			var removeIDs []uuid.UUID
			for pid, cpID := range have {
				if !wanted[pid] {
					removed = append(removed, pid)
					removeIDs = append(removeIDs, cpID)
				}
			}
			if len(removeIDs) > 0 {
				if err := tx.Where("company_product_id IN ?", removeIDs).Delete(&models.UserPermission{}).Error; err != nil {
					return err
				}
				if err := tx.Where("company_product_id IN ?", removeIDs).Delete(&models.UserProduct{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", removeIDs).Delete(&models.CompanyProduct{}).Error; err != nil {
					return err
				}
			}
			for pid := range wanted {
				if _, ok := have[pid]; ok {
					continue
				}
				added = append(added, pid)
				cp := models.CompanyProduct{CompanyID: id, ProductID: pid, CreatedAt: time.Now()}
				if err := tx.Create(&cp).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		aid := actor.ID
		rec.Record(r.Context(), audit.Entry{
			Action:    audit.ActionSubscriptionsChanged,
			AuthorID:  &aid,
			CompanyID: id,
			Details:   map[string]any{"added": added, "removed": removed},
		})
		respondJSON(w, http.StatusOK, map[string]any{"added": added, "removed": removed})
	}
}
