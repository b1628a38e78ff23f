package authz

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"backoffice/internal/models"
)

// Evaluator resolves fine-grained product capabilities against live store
// state. Checks are read-only and safe to run concurrently.
type Evaluator struct {
	db *gorm.DB
}

func NewEvaluator(db *gorm.DB) *Evaluator {
	return &Evaluator{db: db}
}

// Check enforces the two-tier rule: the actor's company must currently be
// subscribed to the product, and the actor must hold an explicit grant for
// the capability under that subscription. A grant whose subscription has
// been revoked is void even if the grant row somehow survived.
func (e *Evaluator) Check(ctx context.Context, actor Actor, productID int, want Capability) error {
	if actor.CompanyID == nil {
		return ErrPermissionDenied
	}
	var cp models.CompanyProduct
	err := e.db.WithContext(ctx).
		Where("company_id = ? AND product_id = ?", *actor.CompanyID, productID).
		First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPermissionDenied
	}
	if err != nil {
		return err
	}

	var n int64
	err = e.db.WithContext(ctx).
		Model(&models.UserPermission{}).
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ? AND user_permissions.company_product_id = ?", actor.ID, cp.ID).
		Where("permissions.action = ? AND permissions.subject = ?", string(want.Action), string(want.Subject)).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPermissionDenied
	}
	return nil
}

// Capabilities lists the actor's effective capabilities for one product:
// granted permissions filtered through the live subscription gate.
func (e *Evaluator) Capabilities(ctx context.Context, actor Actor, productID int) ([]Capability, error) {
	if actor.CompanyID == nil {
		return nil, nil
	}
	var cp models.CompanyProduct
	err := e.db.WithContext(ctx).
		Where("company_id = ? AND product_id = ?", *actor.CompanyID, productID).
		First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []models.Permission
	err = e.db.WithContext(ctx).
		Model(&models.Permission{}).
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ? AND user_permissions.company_product_id = ?", actor.ID, cp.ID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	caps := make([]Capability, 0, len(rows))
	for _, p := range rows {
		caps = append(caps, Capability{Action: Action(p.Action), Subject: Subject(p.Subject)})
	}
	return caps, nil
}
