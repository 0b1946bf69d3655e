package access

import (
	"context"

	dErrors "firledger/pkg/domain-errors"
)

type actorKey struct{}

// WithActor attaches the authenticated actor to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor set by the authentication middleware.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// MustActor returns the actor in ctx or an unauthorized error.
func MustActor(ctx context.Context) (Actor, error) {
	a, ok := ActorFrom(ctx)
	if !ok {
		return Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return a, nil
}
