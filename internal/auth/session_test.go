package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBearerToken(t *testing.T) {
	t.Parallel()

	token, hash, err := GenerateBearerToken()
	require.NoError(t, err)
	assert.Len(t, token, TokenLength*2)
	assert.Equal(t, HashBearerToken(token), hash)

	other, _, err := GenerateBearerToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestValidateSessionToken(t *testing.T) {
	t.Parallel()

	future := time.Now().Add(time.Hour)
	assert.NoError(t, ValidateSessionToken(future, false, false))
	assert.EqualError(t, ValidateSessionToken(time.Now().Add(-time.Minute), false, false), "session expired")
	assert.EqualError(t, ValidateSessionToken(future, true, false), "session revoked")
	assert.EqualError(t, ValidateSessionToken(future, false, true), "identity disabled")
}

func TestCalculateExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.Equal(t, now.Add(time.Hour), CalculateExpiry(now, time.Hour))
	assert.Equal(t, now.Add(SessionDuration), CalculateExpiry(now, 0))
}
