// Package auditctx carries the identity of the requesting account through a
// context so services can attribute audit entries without extra parameters.
package auditctx

import "context"

// Actor is the account behind a request.
type Actor struct {
	UserID    string
	Email     string
	Role      string
	IPAddress string
	UserAgent string
}

// Anonymous reports whether no account is attached.
func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

type key struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key{}, actor)
}

// WithRole records the role resolved for the current actor. Contexts without
// an actor are returned unchanged.
func WithRole(ctx context.Context, role string) context.Context {
	actor, ok := FromContext(ctx)
	if !ok {
		return ctx
	}
	actor.Role = role
	return WithActor(ctx, actor)
}

func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(key{}).(Actor)
	return actor, ok
}
