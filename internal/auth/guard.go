package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

// Resolver loads the live principal for a token subject. *identity.Directory implements it.
type Resolver interface {
	Resolve(ctx context.Context, id uuid.UUID, role identity.Role) (identity.Account, error)
}

// Guard runs the access pipeline: authenticate, active, role, permission.
type Guard struct {
	codec    *TokenCodec
	resolver Resolver
}

func NewGuard(codec *TokenCodec, resolver Resolver) *Guard {
	return &Guard{codec: codec, resolver: resolver}
}

// Authenticate validates the token and resolves the principal it names.
// Token failures are wrapped in ErrUnauthenticated; the underlying codec error stays matchable.
func (g *Guard) Authenticate(ctx context.Context, token string) (Actor, error) {
	claims, err := g.codec.Validate(token)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	id, err := claims.PrincipalID()
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrInvalidToken)
	}

	acct, err := g.resolver.Resolve(ctx, id, claims.Role)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Actor{}, ErrPrincipalNotFound
		}
		return Actor{}, fmt.Errorf("resolve principal: %w", err)
	}
	return ActorFrom(acct), nil
}

func RequireActive(a Actor) error {
	if !a.Active {
		return ErrAccountDeactivated
	}
	return nil
}

func RequireRole(a Actor, allowed ...identity.Role) error {
	if !slices.Contains(allowed, a.Role) {
		return ErrForbiddenRole
	}
	return nil
}

// RequirePermission applies to administrators only; any other role is rejected by role.
func RequirePermission(a Actor, perm string) error {
	if !a.IsAdmin() {
		return ErrForbiddenRole
	}
	if !a.HasPermission(perm) {
		return ErrForbiddenPermission
	}
	return nil
}

// Check runs the full pipeline. An empty perm skips the permission step.
func (g *Guard) Check(ctx context.Context, token string, roles []identity.Role, perm string) (Actor, error) {
	actor, err := g.Authenticate(ctx, token)
	if err != nil {
		return Actor{}, err
	}
	if err := RequireActive(actor); err != nil {
		return Actor{}, err
	}
	if len(roles) > 0 {
		if err := RequireRole(actor, roles...); err != nil {
			return Actor{}, err
		}
	}
	if perm != "" {
		if err := RequirePermission(actor, perm); err != nil {
			return Actor{}, err
		}
	}
	return actor, nil
}
