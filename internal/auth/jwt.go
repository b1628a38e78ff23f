package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"backoffice/internal/authz"
	"backoffice/internal/models"
)

// TokenClaims is what a verified session token asserts. It proves identity
// only; role and company are convenience fields for display and must never
// drive an authorization decision without re-reading the user row.
type TokenClaims struct {
	Subject     uuid.UUID
	Role        models.Role
	CompanyID   *uuid.UUID
	CompanyName string
	ExpiresAt   time.Time
}

// Tokens signs and verifies HS256 session tokens. Secret and TTL are
// injected once at startup rather than read from the environment per call.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign issues a token for the user. company is nil only for SUPER_ADMIN.
func (t *Tokens) Sign(u models.User, company *models.Company) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := jwt.MapClaims{
		"sub":  u.ID.String(),
		"role": string(u.Role),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	if company != nil {
		claims["company"] = map[string]any{"id": company.ID.String(), "name": company.Name}
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature and expiry and decodes the claims. Expired tokens
// are distinguished from malformed or tampered ones.
func (t *Tokens) Verify(raw string) (TokenClaims, error) {
	tok, err := jwt.Parse(raw, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, authz.ErrTokenExpired
		}
		return TokenClaims{}, authz.ErrTokenInvalid
	}
	if !tok.Valid {
		return TokenClaims{}, authz.ErrTokenInvalid
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, authz.ErrTokenInvalid
	}

	subStr, _ := mapc["sub"].(string)
	sub, err := uuid.Parse(subStr)
	if err != nil {
		return TokenClaims{}, authz.ErrTokenInvalid
	}
	roleStr, _ := mapc["role"].(string)
	role, ok := models.ParseRole(roleStr)
	if !ok {
		return TokenClaims{}, authz.ErrTokenInvalid
	}

	out := TokenClaims{Subject: sub, Role: role}
	if expNum, ok := mapc["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(expNum), 0)
	}
	if comp, ok := mapc["company"].(map[string]any); ok {
		if idStr, ok := comp["id"].(string); ok {
			if id, err := uuid.Parse(idStr); err == nil {
				out.CompanyID = &id
			}
		}
		out.CompanyName, _ = comp["name"].(string)
	}
	return out, nil
}
