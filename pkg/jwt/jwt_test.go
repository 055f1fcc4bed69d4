package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("test-secret")

	token, err := m.GenerateAccessToken("2f1f6f0e-7d0a-4a57-8c1b-3f7d9f2b6a11", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "2f1f6f0e-7d0a-4a57-8c1b-3f7d9f2b6a11", claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestManager_RejectsWrongSecretAndExpired(t *testing.T) {
	token, err := NewManager("other").GenerateAccessToken("u", RoleCustomer, time.Hour)
	require.NoError(t, err)

	_, err = NewManager("test-secret").ValidateAccessToken(token)
	assert.Error(t, err)

	m := NewManager("test-secret")
	expired, err := m.GenerateAccessToken("u", RoleCustomer, -time.Minute)
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(expired)
	assert.Error(t, err)
}

func TestManager_RejectsNonAccessToken(t *testing.T) {
	claims := Claims{
		UserID: "u",
		Type:   "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s"))
	require.NoError(t, err)

	_, err = NewManager("s").ValidateAccessToken(signed)
	assert.ErrorContains(t, err, "invalid token type")
}
