package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"backoffice/internal/authz"
	"backoffice/internal/models"
)

// Issuer validates credentials and produces the material a session token is
// signed from. Issuance is stateless; nothing is written.
type Issuer struct {
	db     *gorm.DB
	tokens *Tokens
}

func NewIssuer(db *gorm.DB, tokens *Tokens) *Issuer {
	return &Issuer{db: db, tokens: tokens}
}

// IssuedSession is a successful login result.
type IssuedSession struct {
	Token     string
	ExpiresAt int64
	User      models.User
	Company   *models.Company
}

// Login authenticates an email/password pair. Credential failures are always
// the generic ErrInvalidCredentials; an ADMIN or USER without a living
// company is ErrInvalidTenantConfiguration, a data-integrity fault rather
// than a client error.
func (i *Issuer) Login(ctx context.Context, email, password string) (IssuedSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var u models.User
	err := i.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		BurnPassword(password)
		return IssuedSession{}, authz.ErrInvalidCredentials
	}
	if err != nil {
		return IssuedSession{}, err
	}
	if CheckPassword(u.PasswordHash, password) != nil {
		return IssuedSession{}, authz.ErrInvalidCredentials
	}
	if u.Status != models.StatusActive {
		return IssuedSession{}, authz.ErrActorInactive
	}

	var company *models.Company
	if u.Role != models.RoleSuperAdmin {
		if u.CompanyID == nil {
			return IssuedSession{}, fmt.Errorf("%w: user %s has no company", authz.ErrInvalidTenantConfiguration, u.ID)
		}
		var c models.Company
		if err := i.db.WithContext(ctx).First(&c, "id = ?", *u.CompanyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return IssuedSession{}, fmt.Errorf("%w: company %s missing for user %s", authz.ErrInvalidTenantConfiguration, *u.CompanyID, u.ID)
			}
			return IssuedSession{}, err
		}
		company = &c
	}

	tok, exp, err := i.tokens.Sign(u, company)
	if err != nil {
		return IssuedSession{}, err
	}
	return IssuedSession{Token: tok, ExpiresAt: exp.Unix(), User: u, Company: company}, nil
}
