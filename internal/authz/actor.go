package authz

import (
	"github.com/google/uuid"

	"backoffice/internal/models"
)

// Actor is the resolved identity a request acts as. It is built from the
// current user row on every request, never from token claims alone, so a
// demotion or deactivation takes effect before the token expires.
type Actor struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CompanyID *uuid.UUID  `json:"company_id,omitempty"`
}

// ActorFromUser snapshots the fields authorization decisions depend on.
func ActorFromUser(u models.User) Actor {
	return Actor{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CompanyID: u.CompanyID,
	}
}

// RequireRole accepts the actor when its role appears in the operation's
// allow-list. Pure function of (actor.Role, allowed).
func RequireRole(actor Actor, allowed ...models.Role) error {
	for _, r := range allowed {
		if actor.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
