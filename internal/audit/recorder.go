package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice/internal/models"
	"backoffice/internal/obs"
)

// Action kinds recorded by the back office. Audit rows store these verbatim.
const (
	ActionUserCreated          = "USER_CREATED"
	ActionUserUpdated          = "USER_UPDATED"
	ActionUserDeleted          = "USER_DELETED"
	ActionCompanyCreated       = "COMPANY_CREATED"
	ActionCompanyUpdated       = "COMPANY_UPDATED"
	ActionCompanyDeleted       = "COMPANY_DELETED"
	ActionSubscriptionsChanged = "SUBSCRIPTIONS_CHANGED"
	ActionPermissionsChanged   = "PERMISSIONS_CHANGED"
	ActionPasswordChanged      = "PASSWORD_CHANGED"
)

// Entry is one privileged mutation to record. AuthorID is nil for
// system-triggered actions; CompanyID names the tenant affected, which may
// differ from the author's own tenant when a SUPER_ADMIN acts.
type Entry struct {
	Action    string
	AuthorID  *uuid.UUID
	CompanyID uuid.UUID
	Details   map[string]any
}

// Recorder appends audit rows. Writes are strictly after-the-fact: callers
// invoke Record only once the primary transaction has committed, and a
// failed write never propagates back into the request that triggered it.
type Recorder struct {
	db *gorm.DB
	lg *zap.SugaredLogger
}

func NewRecorder(db *gorm.DB, lg *zap.SugaredLogger) *Recorder {
	return &Recorder{db: db, lg: lg}
}

// Record appends one audit row. Failures are surfaced to operators through
// the error log and the audit_write_failures_total counter, never to the
// caller: the primary action already happened and must not be rolled back
// or failed over a lost audit entry. There is no retry; each logical action
// gets exactly one write attempt.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.Action == "" || e.CompanyID == uuid.Nil {
		obs.AuditWriteFailures.Inc()
		r.lg.Errorw("audit entry rejected", "action", e.Action, "company_id", e.CompanyID)
		return
	}
	details, err := models.JSONBFrom(e.Details)
	if err != nil {
		obs.AuditWriteFailures.Inc()
		r.lg.Errorw("audit details marshal failed", "action", e.Action, "error", err)
		return
	}
	row := models.AuditLog{
		Action:    e.Action,
		AuthorID:  e.AuthorID,
		CompanyID: e.CompanyID,
		Details:   details,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		obs.AuditWriteFailures.Inc()
		r.lg.Errorw("audit write failed",
			"action", e.Action, "company_id", e.CompanyID, "error", err)
	}
}
