package shared

import "context"

// Role identifies what a user is allowed to do.
type Role string

const (
	// RoleOwner may perform every operation, including user management.
	RoleOwner Role = "OWNER"
	// RoleMaker creates and runs production batches and intakes.
	RoleMaker Role = "MAKER"
	// RoleChecker approves or rejects batches and intakes.
	RoleChecker Role = "CHECKER"
)

// Actor is the authenticated identity attached to every request.
type Actor struct {
	ID   int64
	Name string
	Role Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored in the context, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
