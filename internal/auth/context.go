package auth

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

// Actor is the resolved caller, built from the live principal record.
type Actor struct {
	ID          uuid.UUID
	Role        identity.Role
	Email       string
	Active      bool
	Permissions []string
}

func ActorFrom(acct identity.Account) Actor {
	base := acct.Base()
	return Actor{
		ID:          base.ID,
		Role:        acct.Role(),
		Email:       base.Email,
		Active:      base.IsActive,
		Permissions: identity.PermissionsOf(acct),
	}
}

func (a Actor) IsAdmin() bool { return a.Role == identity.RoleAdmin }

func (a Actor) HasPermission(perm string) bool {
	return a.IsAdmin() && slices.Contains(a.Permissions, perm)
}

type actorContextKey struct{}

// ContextWithActor attaches the authenticated actor to the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, &actor)
}

// ActorFromContext extracts the authenticated actor from the context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	v, ok := ctx.Value(actorContextKey{}).(*Actor)
	if !ok || v == nil {
		return Actor{}, false
	}
	return *v, true
}
