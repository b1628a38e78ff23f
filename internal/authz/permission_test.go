package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"backoffice/internal/models"
)

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability("EDIT:DOCUMENTS")
	if err != nil {
		t.Fatalf("ParseCapability: %v", err)
	}
	if c.Action != ActionEdit || c.Subject != SubjectDocuments {
		t.Fatalf("unexpected capability: %+v", c)
	}
	if c.Key() != "EDIT:DOCUMENTS" {
		t.Fatalf("round trip broke: %s", c.Key())
	}
	if _, err := ParseCapability("edit:documents"); err != nil {
		t.Fatalf("case-insensitive parse should pass: %v", err)
	}
	if _, err := ParseCapability("FLY:DOCUMENTS"); err == nil {
		t.Fatal("unknown action must be rejected")
	}
	if _, err := ParseCapability("EDIT"); err == nil {
		t.Fatal("malformed key must be rejected")
	}
}

func TestEvaluatorDeniesWithoutSubscription(t *testing.T) {
	gdb, mock := newTestDB(t)
	eval := NewEvaluator(gdb)
	cid := uuid.New()
	actor := Actor{ID: uuid.New(), Role: models.RoleUser, CompanyID: &cid}

	mock.ExpectQuery(`SELECT \* FROM "company_products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "product_id"}))

	err := eval.Check(context.Background(), actor, 1, Capability{Action: ActionEdit, Subject: SubjectDocuments})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied without subscription, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEvaluatorDeniesWithoutGrant(t *testing.T) {
	gdb, mock := newTestDB(t)
	eval := NewEvaluator(gdb)
	cid := uuid.New()
	cpID := uuid.New()
	actor := Actor{ID: uuid.New(), Role: models.RoleUser, CompanyID: &cid}

	mock.ExpectQuery(`SELECT \* FROM "company_products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "product_id"}).
			AddRow(cpID.String(), cid.String(), 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_permissions"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := eval.Check(context.Background(), actor, 1, Capability{Action: ActionEdit, Subject: SubjectDocuments})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied without grant, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEvaluatorAllowsSubscribedGrant(t *testing.T) {
	gdb, mock := newTestDB(t)
	eval := NewEvaluator(gdb)
	cid := uuid.New()
	cpID := uuid.New()
	actor := Actor{ID: uuid.New(), Role: models.RoleUser, CompanyID: &cid}

	mock.ExpectQuery(`SELECT \* FROM "company_products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "product_id"}).
			AddRow(cpID.String(), cid.String(), 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_permissions"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := eval.Check(context.Background(), actor, 1, Capability{Action: ActionEdit, Subject: SubjectDocuments})
	if err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEvaluatorDeniesActorWithoutCompany(t *testing.T) {
	gdb, _ := newTestDB(t)
	eval := NewEvaluator(gdb)
	actor := Actor{ID: uuid.New()}

	err := eval.Check(context.Background(), actor, 1, Capability{Action: ActionView, Subject: SubjectReports})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}
