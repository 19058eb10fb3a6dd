package iam

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/repository"
)

const (
	setupTokenIssuer   = "hrapi"
	setupTokenAudience = "hrapi-setup"
)

type setupClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SetupTokens issues and redeems one-time admin bootstrap tokens: HS256
// JWTs naming an email. Each jti can be redeemed once.
type SetupTokens struct {
	secret  []byte
	repo    repository.SetupTokenRepository
	timeout time.Duration
	now     func() time.Time
}

// NewSetupTokens returns a token issuer. An empty secret disables tokens.
func NewSetupTokens(secret string, repo repository.SetupTokenRepository, timeout time.Duration) *SetupTokens {
	return &SetupTokens{secret: []byte(secret), repo: repo, timeout: timeout, now: time.Now}
}

// Enabled reports whether a signing secret is configured.
func (t *SetupTokens) Enabled() bool { return len(t.secret) > 0 }

// Issue signs a token for email that expires after ttl.
func (t *SetupTokens) Issue(email string, ttl time.Duration) (string, error) {
	if !t.Enabled() {
		return "", fmt.Errorf("setup token secret is not configured")
	}
	email = normalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}

	now := t.now()
	claims := setupClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    setupTokenIssuer,
			Audience:  jwt.ClaimStrings{setupTokenAudience},
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign setup token: %w", err)
	}
	return signed, nil
}

// Redeem validates token for the caller and records its jti. It fails when
// the token names another email or was already used.
func (t *SetupTokens) Redeem(ctx context.Context, token, callerID, callerEmail string) (*models.UsedSetupToken, error) {
	const op = "iam.RedeemSetupToken"
	if !t.Enabled() {
		return nil, apperr.AccessDenied(op, "setup tokens are disabled")
	}

	claims := &setupClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(setupTokenIssuer),
		jwt.WithAudience(setupTokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidationFailed, op, fmt.Errorf("invalid setup token: %w", err))
	}
	if claims.ID == "" {
		return nil, apperr.ValidationFailed(op, "setup token has no id")
	}
	if claims.Email != normalizeEmail(callerEmail) {
		return nil, apperr.AccessDenied(op, "setup token was issued for a different principal")
	}

	used := &models.UsedSetupToken{
		JTI:        claims.ID,
		Email:      claims.Email,
		RedeemedBy: callerID,
		ExpiresAt:  claims.ExpiresAt.Time,
		RedeemedAt: t.now().UTC(),
	}
	var fresh bool
	err = apperr.Call(ctx, t.timeout, op, repository.IsNotFound, func(ctx context.Context) error {
		var err error
		fresh, err = t.repo.Redeem(ctx, used)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, apperr.ValidationFailed(op, "setup token was already used")
	}
	return used, nil
}

// Release returns a redeemed jti to the unused state. Callers use it when
// the role grant paid for by the token did not happen.
func (t *SetupTokens) Release(ctx context.Context, jti string) error {
	return apperr.Call(ctx, t.timeout, "iam.ReleaseSetupToken", repository.IsNotFound, func(ctx context.Context) error {
		return t.repo.Release(ctx, jti)
	})
}

// PurgeExpired drops ledger entries for tokens past their expiry. Their
// signatures no longer verify, so the jti cannot be replayed.
func (t *SetupTokens) PurgeExpired(ctx context.Context) (int64, error) {
	var n int64
	err := apperr.Call(ctx, t.timeout, "iam.PurgeExpiredSetupTokens", repository.IsNotFound, func(ctx context.Context) error {
		var err error
		n, err = t.repo.DeleteExpired(ctx, t.now().UTC())
		return err
	})
	return n, err
}
