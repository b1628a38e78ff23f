package authz

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"backoffice/internal/models"
)

// CanAccessCompany decides whether the actor may touch a resource owned by
// the given tenant. SUPER_ADMIN is unrestricted; everyone else is confined to
// their own company.
func CanAccessCompany(actor Actor, companyID uuid.UUID) error {
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	if actor.CompanyID != nil && *actor.CompanyID == companyID {
		return nil
	}
	return ErrForbidden
}

// ScopeToCompany narrows a list query to the actor's tenant at the data
// layer. Filtering in SQL rather than after the fetch keeps cross-tenant row
// counts from leaking through response sizes or timing.
//
// column names the tenant-owner column of the queried table ("company_id",
// or "id" when querying companies themselves).
func ScopeToCompany(actor Actor, q *gorm.DB, column string) *gorm.DB {
	if actor.Role == models.RoleSuperAdmin {
		return q
	}
	if actor.CompanyID == nil {
		// A non-super-admin without a tenant matches nothing.
		return q.Where("1 = 0")
	}
	return q.Where(column+" = ?", *actor.CompanyID)
}
