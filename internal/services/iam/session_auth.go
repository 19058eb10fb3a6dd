package iam

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/repository"
)

// RoleReader resolves a principal's effective role through the trusted path.
type RoleReader interface {
	EffectiveRole(ctx context.Context, principalID string) (models.RoleTag, error)
}

// SessionAuthenticator authenticates requests carrying a session token,
// either in the hr.session cookie or as an Authorization: Bearer header.
//
// This authenticator is stateless and thread-safe.
type SessionAuthenticator struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	roles    RoleReader
	// timeout bounds the detached last-used update.
	timeout time.Duration
}

// NewSessionAuthenticator creates a new session authenticator.
func NewSessionAuthenticator(users repository.UserRepository, sessions repository.SessionRepository, roles RoleReader, timeout time.Duration) *SessionAuthenticator {
	return &SessionAuthenticator{users: users, sessions: sessions, roles: roles, timeout: timeout}
}

// Authenticate extracts and validates the session token.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	token := TokenFromRequest(req)
	if token == "" {
		return nil, nil
	}

	session, user, err := a.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	role, err := a.roles.EffectiveRole(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w", err)
	}

	go a.touch(session.ID)

	return &Principal{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		SessionID: session.ID,
		Role:      role,
	}, nil
}

// touch records session use. It runs detached from the request.
func (a *SessionAuthenticator) touch(sessionID string) {
	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.sessions.UpdateLastUsed(ctx, sessionID); err != nil {
		log.Printf("WARNING: update last use of session %s: %v", sessionID, err)
	}
}

// lookup returns the session and owner for token, failing when the session
// is expired or revoked or the owner is disabled.
func (a *SessionAuthenticator) lookup(ctx context.Context, token string) (*models.Session, *models.User, error) {
	session, err := a.sessions.GetByTokenHash(ctx, auth.HashBearerToken(token))
	if err != nil {
		return nil, nil, fmt.Errorf("session not found: %w", err)
	}

	user, err := a.users.GetByID(ctx, session.UserID)
	if err != nil {
		return session, nil, fmt.Errorf("user not found: %w", err)
	}

	if err := auth.ValidateSessionToken(session.ExpiresAt, session.Revoked, user.DisabledAt != nil); err != nil {
		return session, user, err
	}
	return session, user, nil
}

// TokenFromRequest extracts the session token, preferring the session
// cookie over the Authorization header.
func TokenFromRequest(req AuthRequest) string {
	for _, cookie := range req.Cookies {
		if cookie.Name == auth.SessionCookieName && cookie.Value != "" {
			return cookie.Value
		}
	}
	if req.Headers != nil {
		header := req.Headers.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}
