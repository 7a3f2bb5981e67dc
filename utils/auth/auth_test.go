package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "s3cret", Issuer: "catalog-api", Expiry: time.Minute})

	token, jti, err := m.GenerateAccessToken("user-1", "a@example.com", []int{1, 2})
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, jti, claims.ID)
	assert.True(t, claims.HasRole(1))
	assert.False(t, claims.HasRole(3))
}

func TestValidateTokenRejects(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "s3cret", Issuer: "catalog-api", Expiry: time.Minute})

	other := NewJWTManager(JWTConfig{Secret: "other", Issuer: "catalog-api"})
	forged, _, err := other.GenerateAccessToken("user-1", "a@example.com", []int{1})
	require.NoError(t, err)
	_, err = m.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign := NewJWTManager(JWTConfig{Secret: "s3cret", Issuer: "someone-else"})
	wrongIssuer, _, err := foreign.GenerateAccessToken("user-1", "a@example.com", []int{1})
	require.NoError(t, err)
	_, err = m.ValidateToken(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTManager(JWTConfig{Secret: "s3cret", Issuer: "catalog-api", Expiry: -time.Minute})
	old, _, err := expired.GenerateAccessToken("user-1", "a@example.com", nil)
	require.NoError(t, err)
	_, err = m.ValidateToken(old)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	_, err := HashPasswordWithCost("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPasswordWithCost("long enough", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "long enough"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong one!"), ErrPasswordMismatch)

	_, err = HashPasswordWithCost(strings.Repeat("x", MaxPasswordBytes+1), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPasswordWithCost("long enough", bcrypt.MinCost)
	require.NoError(t, err)

	assert.False(t, NeedsRehash(hash, bcrypt.MinCost))
	assert.True(t, NeedsRehash(hash, bcrypt.MinCost+1))
	assert.True(t, NeedsRehash("plaintext", bcrypt.MinCost))
}
