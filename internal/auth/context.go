package auth

import (
	"context"

	"backoffice/internal/authz"
)

type ctxKey string

const actorKey ctxKey = "actor"

// WithActor stores the resolved actor on the request context.
func WithActor(ctx context.Context, a authz.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor resolved by the Authenticate middleware.
// The zero Actor (empty ID, empty role) means the request never passed
// through authentication.
func ActorFromContext(ctx context.Context) authz.Actor {
	if v, ok := ctx.Value(actorKey).(authz.Actor); ok {
		return v
	}
	return authz.Actor{}
}
