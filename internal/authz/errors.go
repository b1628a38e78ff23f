package authz

import "errors"

// Sentinel failures for the authentication and authorization core. Handlers
// map these onto HTTP statuses in exactly one place; everything below the
// handler layer returns (or wraps) one of these.
var (
	// ErrInvalidCredentials is deliberately generic: the same value comes
	// back whether the email is unknown or the password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenMissing = errors.New("missing bearer token")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Re-resolution failures: the token verified but the live actor row is
	// gone or deactivated.
	ErrActorNotFound = errors.New("actor not found")
	ErrActorInactive = errors.New("actor inactive")

	// ErrForbidden covers role and tenant-scope denials.
	ErrForbidden = errors.New("forbidden")

	// ErrPermissionDenied covers fine-grained capability denials.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidTenantConfiguration marks a data-integrity fault: an ADMIN
	// or USER row without a living company. Operator-actionable, never a
	// client error.
	ErrInvalidTenantConfiguration = errors.New("invalid tenant configuration")
)
