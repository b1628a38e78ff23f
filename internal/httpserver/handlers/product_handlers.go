package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice/internal/auth"
	"backoffice/internal/authz"
	"backoffice/internal/models"
)

// ListProducts returns the global product catalog. It is the same for every
// tenant; what differs is which entries a company subscribes to.
func ListProducts(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ps []models.Product
		if err := db.WithContext(r.Context()).Order("id").Find(&ps).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, ps)
	}
}

// ListCapabilities exposes the shared capability catalog so the UI renders
// grant pickers from the same source the evaluator enforces.
func ListCapabilities() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caps := authz.Catalog()
		out := make([]map[string]any, 0, len(caps))
		for _, c := range caps {
			out = append(out, map[string]any{
				"key": c.Key(), "action": c.Action, "subject": c.Subject,
			})
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// CheckCapability answers whether the calling actor currently holds one
// capability under one product, through the full two-tier evaluation.
func CheckCapability(eval *authz.Evaluator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID  int    `json:"product_id"`
			Capability string `json:"capability"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "malformed body")
			return
		}
		capab, err := authz.ParseCapability(req.Capability)
		if err != nil {
			respondBadRequest(w, err.Error())
			return
		}
		actor := auth.ActorFromContext(r.Context())
		if err := eval.Check(r.Context(), actor, req.ProductID, capab); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"allowed": true})
	}
}

// MyCapabilities lists the actor's effective capabilities for one product.
func MyCapabilities(eval *authz.Evaluator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID int `json:"product_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "malformed body")
			return
		}
		actor := auth.ActorFromContext(r.Context())
		caps, err := eval.Capabilities(r.Context(), actor, req.ProductID)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		keys := make([]string, 0, len(caps))
		for _, c := range caps {
			keys = append(keys, c.Key())
		}
		respondJSON(w, http.StatusOK, map[string]any{"capabilities": keys})
	}
}
