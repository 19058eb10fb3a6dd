package auth

import (
	"context"

	"github.com/terraconstructs/hrconsole/internal/db/models"
)

// AuthenticatedPrincipal captures identity metadata propagated through the request context.
type AuthenticatedPrincipal struct {
	// PrincipalID is users.id.
	PrincipalID string
	Email       string
	Name        string
	// SessionID references the active session row.
	SessionID string
	// Role is the effective role read through the trusted path during authentication.
	Role models.RoleTag
}

type principalContextKey struct{}

// SetUserContext stores the authenticated principal on the context for downstream consumers.
func SetUserContext(ctx context.Context, principal AuthenticatedPrincipal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// GetUserFromContext retrieves the authenticated principal from the context.
func GetUserFromContext(ctx context.Context) (AuthenticatedPrincipal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(AuthenticatedPrincipal)
	return principal, ok
}
