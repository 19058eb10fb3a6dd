package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Session validation failures
var (
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionRevoked   = errors.New("session revoked")
	ErrIdentityDisabled = errors.New("identity disabled")
)

const (
	// SessionDuration is the default session lifetime (12 hours)
	SessionDuration = 12 * time.Hour

	// TokenLength is the length of generated bearer tokens in bytes
	TokenLength = 32

	// SessionCookieName carries the bearer token for browser clients
	SessionCookieName = "hr.session"
)

// GenerateBearerToken generates a cryptographically secure random bearer token
// Returns: token (hex string), token hash (SHA256 hex), error
func GenerateBearerToken() (string, string, error) {
	tokenBytes := make([]byte, TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("generate random token: %w", err)
	}

	token := hex.EncodeToString(tokenBytes)
	return token, HashBearerToken(token), nil
}

// HashBearerToken hashes a bearer token for storage/lookup
// Returns SHA256 hex hash
func HashBearerToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// CalculateExpiry returns createdAt + ttl, falling back to SessionDuration.
func CalculateExpiry(createdAt time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = SessionDuration
	}
	return createdAt.Add(ttl)
}

// ValidateSessionToken checks expiration, revocation and identity status
func ValidateSessionToken(expiresAt time.Time, revoked bool, identityDisabled bool) error {
	if time.Now().After(expiresAt) {
		return ErrSessionExpired
	}
	if revoked {
		return ErrSessionRevoked
	}
	if identityDisabled {
		return ErrIdentityDisabled
	}
	return nil
}
