package idtoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/dealguard/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("provider-key"))
	require.NoError(t, err)
	return token
}

func TestDecode(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signed(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1234567890",
			Issuer:    "https://accounts.google.com",
			Audience:  jwt.ClaimStrings{"client-id"},
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Nonce: "nonce-1",
		Email: "buyer@example.com",
	})

	claims, err := NewDecoder().Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", claims.Subject)
	assert.Equal(t, []string{"client-id"}, claims.Audience)
	assert.Equal(t, "nonce-1", claims.Nonce)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.True(t, exp.Equal(claims.ExpiresAt))
}

func TestDecode_MissingSubject(t *testing.T) {
	token := signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"client-id"}}})

	_, err := NewDecoder().Decode(token)
	assert.ErrorIs(t, err, core.ErrInvalidIDToken)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := NewDecoder().Decode("not-a-jwt")
	assert.ErrorIs(t, err, core.ErrInvalidIDToken)
}
