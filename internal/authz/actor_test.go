package authz

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"backoffice/internal/models"
)

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name    string
		role    models.Role
		allowed []models.Role
		wantErr bool
	}{
		{"super admin on admin list", models.RoleSuperAdmin, []models.Role{models.RoleSuperAdmin, models.RoleAdmin}, false},
		{"admin on admin list", models.RoleAdmin, []models.Role{models.RoleSuperAdmin, models.RoleAdmin}, false},
		{"user on admin list", models.RoleUser, []models.Role{models.RoleSuperAdmin, models.RoleAdmin}, true},
		{"admin on super-only list", models.RoleAdmin, []models.Role{models.RoleSuperAdmin}, true},
		{"user on user list", models.RoleUser, []models.Role{models.RoleUser}, false},
		{"empty allow list denies everyone", models.RoleSuperAdmin, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireRole(Actor{Role: tc.role}, tc.allowed...)
			if tc.wantErr && !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
		})
	}
}

func TestActorFromUser(t *testing.T) {
	cid := uuid.New()
	u := models.User{
		ID: uuid.New(), Name: "a", Email: "a@x.test",
		Role: models.RoleAdmin, Status: models.StatusActive, CompanyID: &cid,
	}
	a := ActorFromUser(u)
	if a.ID != u.ID || a.Role != models.RoleAdmin || a.CompanyID == nil || *a.CompanyID != cid {
		t.Fatalf("actor snapshot mismatch: %+v", a)
	}
}
