package security

import (
	"context"
	"errors"
)

var (
	ErrAuthRequired  = errors.New("authentication required")
	ErrAdminRequired = errors.New("admin access required")
	ErrAccessDenied  = errors.New("access denied")
)

// OwnerFunc loads the owning identity of the resource being guarded. It is
// only invoked when the caller is authenticated and not an admin.
type OwnerFunc func(ctx context.Context) (string, error)

// Each guard re-resolves the context so a revoked session takes effect on
// the very next call; nothing is cached across requests.

// RequireAuth fails unless the caller is authenticated.
func (r *Resolver) RequireAuth(ctx context.Context, token string) (Context, error) {
	sc := r.Resolve(ctx, token)
	if !sc.Authenticated {
		return Context{}, ErrAuthRequired
	}
	return sc, nil
}

// RequireAdmin fails with ErrAuthRequired for anonymous callers and
// ErrAdminRequired for authenticated non-admins.
func (r *Resolver) RequireAdmin(ctx context.Context, token string) (Context, error) {
	sc := r.Resolve(ctx, token)
	if !sc.Authenticated {
		return Context{}, ErrAuthRequired
	}
	if !sc.Admin {
		return Context{}, ErrAdminRequired
	}
	return sc, nil
}

// RequireOwnerOrAdmin admits admins immediately; for everyone else it loads
// the resource owner through ownerOf and compares identities.
func (r *Resolver) RequireOwnerOrAdmin(ctx context.Context, token string, ownerOf OwnerFunc) (Context, error) {
	sc := r.Resolve(ctx, token)
	if !sc.Authenticated {
		return Context{}, ErrAuthRequired
	}
	if sc.Admin {
		return sc, nil
	}
	owner, err := ownerOf(ctx)
	if err != nil {
		return Context{}, err
	}
	if owner != sc.UserID {
		return Context{}, ErrAccessDenied
	}
	return sc, nil
}
