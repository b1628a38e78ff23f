package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"backoffice/internal/audit"
	"backoffice/internal/auth"
	"backoffice/internal/authz"
	"backoffice/internal/models"
)

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return gdb, mock
}

func withURLParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func asActor(r *http.Request, a authz.Actor) *http.Request {
	return r.WithContext(auth.WithActor(r.Context(), a))
}

func nop() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func expectAuditInsert(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()
}

func TestGetCompanyCrossTenantForbidden(t *testing.T) {
	gdb, mock := newTestDB(t)
	c1, c2 := uuid.New(), uuid.New()
	admin := authz.Actor{ID: uuid.New(), Role: models.RoleAdmin, CompanyID: &c1}

	req := httptest.NewRequest(http.MethodGet, "/v1/companies/"+c2.String(), nil)
	req = asActor(withURLParam(req, "id", c2.String()), admin)
	rr := httptest.NewRecorder()
	GetCompany(gdb, nop())(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("ADMIN of C1 reading C2 must get 403, got %d: %s", rr.Code, rr.Body.String())
	}
	// The denial happens before any store access.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL expected on scope denial: %v", err)
	}
}

func TestGetCompanySuperAdminUnrestricted(t *testing.T) {
	gdb, mock := newTestDB(t)
	c2 := uuid.New()
	super := authz.Actor{ID: uuid.New(), Role: models.RoleSuperAdmin}

	mock.ExpectQuery(`SELECT \* FROM "companies" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tax_id"}).AddRow(c2.String(), "Other Corp", "TX-2"))
	mock.ExpectQuery(`SELECT \* FROM "company_products" WHERE company_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "product_id"}).
			AddRow(uuid.New().String(), c2.String(), 1))

	req := httptest.NewRequest(http.MethodGet, "/v1/companies/"+c2.String(), nil)
	req = asActor(withURLParam(req, "id", c2.String()), super)
	rr := httptest.NewRecorder()
	GetCompany(gdb, nop())(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("SUPER_ADMIN must read any tenant, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Other Corp") {
		t.Fatalf("expected company payload, got %s", rr.Body.String())
	}
}

func TestLoginWrongPasswordGeneric401(t *testing.T) {
	gdb, mock := newTestDB(t)
	tokens := auth.NewTokens("secret-for-tests", time.Hour)
	issuer := auth.NewIssuer(gdb, tokens)
	lim := NewLoginLimiter(1000, 1000)

	hash, err := bcrypt.GenerateFromPassword([]byte("the-real-one"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	cid := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "status", "company_id"}).
			AddRow(uuid.New().String(), "U", "u@x.test", string(hash), "USER", "ACTIVE", cid.String()))

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"email":"u@x.test","password":"wrong"}`))
	rr := httptest.NewRecorder()
	Login(issuer, lim, nop())(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "INVALID_CREDENTIALS") {
		t.Fatalf("expected generic credential error, got %s", rr.Body.String())
	}
	// No audit write for failed logins.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected extra SQL: %v", err)
	}
}

func TestDeleteUserWritesOneAuditRow(t *testing.T) {
	gdb, mock := newTestDB(t)
	rec := audit.NewRecorder(gdb, nop())
	cid := uuid.New()
	target := uuid.New()
	admin := authz.Actor{ID: uuid.New(), Role: models.RoleAdmin, CompanyID: &cid}

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "status", "company_id"}).
			AddRow(target.String(), "T", "t@x.test", "h", "USER", "ACTIVE", cid.String()))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "user_permissions" WHERE user_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "user_products" WHERE user_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "users" WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectAuditInsert(mock)

	req := httptest.NewRequest(http.MethodDelete, "/v1/users/"+target.String(), nil)
	req = asActor(withURLParam(req, "id", target.String()), admin)
	rr := httptest.NewRecorder()
	DeleteUser(gdb, rec, nop())(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected exactly one audit insert after the commit: %v", err)
	}
}

func TestDeleteUserSurvivesAuditFailure(t *testing.T) {
	gdb, mock := newTestDB(t)
	rec := audit.NewRecorder(gdb, nop())
	cid := uuid.New()
	target := uuid.New()
	super := authz.Actor{ID: uuid.New(), Role: models.RoleSuperAdmin}

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "status", "company_id"}).
			AddRow(target.String(), "T", "t@x.test", "h", "USER", "ACTIVE", cid.String()))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "user_permissions"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "user_products"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodDelete, "/v1/users/"+target.String(), nil)
	req = asActor(withURLParam(req, "id", target.String()), super)
	rr := httptest.NewRecorder()
	DeleteUser(gdb, rec, nop())(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("audit failure must not fail the deletion, got %d: %s", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReconcileSubscriptionsCascadesInOneTx(t *testing.T) {
	gdb, mock := newTestDB(t)
	rec := audit.NewRecorder(gdb, nop())
	cid := uuid.New()
	cpOld := uuid.New()
	super := authz.Actor{ID: uuid.New(), Role: models.RoleSuperAdmin}

	mock.ExpectQuery(`SELECT \* FROM "companies" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tax_id"}).AddRow(cid.String(), "Acme", "TX-1"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE id IN \(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "company_products" WHERE company_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "product_id"}).
			AddRow(cpOld.String(), cid.String(), 1))
	mock.ExpectExec(`DELETE FROM "user_permissions" WHERE company_product_id IN \(\$1\)`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM "user_products" WHERE company_product_id IN \(\$1\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "company_products" WHERE id IN \(\$1\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "company_products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()
	expectAuditInsert(mock)

	req := httptest.NewRequest(http.MethodPut, "/v1/companies/"+cid.String()+"/products",
		strings.NewReader(`{"product_ids":[2]}`))
	req = asActor(withURLParam(req, "id", cid.String()), super)
	rr := httptest.NewRecorder()
	ReconcileSubscriptions(gdb, rec, nop())(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("cascade must run inside one transaction: %v", err)
	}
}

func TestCreateUserAdminCrossTenantForbidden(t *testing.T) {
	gdb, mock := newTestDB(t)
	rec := audit.NewRecorder(gdb, nop())
	own := uuid.New()
	other := uuid.New()
	admin := authz.Actor{ID: uuid.New(), Role: models.RoleAdmin, CompanyID: &own}

	body := `{"name":"n","email":"n@x.test","password":"longenough1","role":"USER","company_id":"` + other.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/users", strings.NewReader(body))
	req = asActor(req, admin)
	rr := httptest.NewRecorder()
	CreateUser(gdb, rec, nop())(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("ADMIN creating in another tenant must get 403, got %d: %s", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL expected: %v", err)
	}
}

func TestCreateUserAdminCannotMintSuperAdmin(t *testing.T) {
	gdb, _ := newTestDB(t)
	rec := audit.NewRecorder(gdb, nop())
	own := uuid.New()
	admin := authz.Actor{ID: uuid.New(), Role: models.RoleAdmin, CompanyID: &own}

	body := `{"name":"n","email":"n@x.test","password":"longenough1","role":"SUPER_ADMIN"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/users", strings.NewReader(body))
	req = asActor(req, admin)
	rr := httptest.NewRecorder()
	CreateUser(gdb, rec, nop())(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}
