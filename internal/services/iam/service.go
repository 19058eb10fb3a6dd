package iam

import (
	"context"

	"github.com/terraconstructs/hrconsole/internal/db/models"
)

// ClientMeta describes the client opening a session.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// SignInResult is returned by a successful sign-in. Token is the unhashed
// bearer token; only its hash is stored.
type SignInResult struct {
	Session   *models.Session
	Token     string
	Principal *Principal
}

// Service provides identity store operations.
//
// Every method returns *apperr.Error values on failure.
type Service interface {
	// =========================================================================
	// Authentication service (browser-facing)
	// =========================================================================

	// SignUp creates a principal with a bcrypt password hash.
	SignUp(ctx context.Context, email, password, name string) (*models.User, error)

	// SignIn exchanges credentials for a session and publishes SignedIn.
	// It returns after every subscriber has handled the event.
	SignIn(ctx context.Context, email, password string, meta ClientMeta) (*SignInResult, error)

	// SignOut revokes the session behind token and publishes SignedOut.
	SignOut(ctx context.Context, token string) error

	// GetCurrentSession restores the session behind token on page load.
	// A valid session publishes SessionRestored and returns the principal;
	// otherwise SessionMissing is published and Unauthenticated returned.
	GetCurrentSession(ctx context.Context, token string) (*Principal, error)

	// Events is the lifecycle event stream.
	Events() *EventBus

	// =========================================================================
	// Request authentication
	// =========================================================================

	// AuthenticateRequest tries all registered authenticators in order.
	//
	// Returns:
	//   - (principal, nil): Authentication successful
	//   - (nil, nil): No credentials found (unauthenticated request)
	//   - (nil, error): Authentication failed (invalid credentials)
	AuthenticateRequest(ctx context.Context, req AuthRequest) (*Principal, error)

	// =========================================================================
	// Directory (privileged, server-side)
	// =========================================================================

	// ListUsers returns one page of principals. It fails with AccessDenied
	// when directory enumeration is disabled.
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, error)

	// ListAllUsers pages through the whole directory.
	ListAllUsers(ctx context.Context) ([]models.User, error)

	// CreateUser inserts a principal. An empty password leaves the account
	// without usable credentials until one is set.
	CreateUser(ctx context.Context, email, password, name string) (*models.User, error)

	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// =========================================================================
	// Maintenance
	// =========================================================================

	// PurgeExpiredSessions deletes sessions that expired before now or were revoked.
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}
