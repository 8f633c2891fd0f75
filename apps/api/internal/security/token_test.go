package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "sess-1", "ops@example.com", time.Now(), time.Hour)
	require.NoError(t, err)

	claims, err := parseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "ops@example.com", claims.Email)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "sess-1", "", time.Now(), time.Hour)
	require.NoError(t, err)

	_, err = parseAccessToken(token, "other")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseExpiredAccessToken(token, "other")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "sess-1", "", time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	_, err = parseAccessToken(token, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := ParseExpiredAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestRefreshTokenHash(t *testing.T) {
	token, hash, err := GenerateRefreshToken(32)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, hash, HashRefreshToken(token))

	other, _, err := GenerateRefreshToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
