package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	verifier := NewJWTVerifier("secret")
	token := signToken(t, "secret", jwt.MapClaims{
		"user_id": 42,
		"name":    "bob",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	ident, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, ident.UserID)
	assert.Equal(t, "bob", ident.Name)
}

func TestVerifyWrongSecret(t *testing.T) {
	verifier := NewJWTVerifier("secret")
	token := signToken(t, "other", jwt.MapClaims{"user_id": 42})

	_, err := verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMissingUserID(t *testing.T) {
	verifier := NewJWTVerifier("secret")
	token := signToken(t, "secret", jwt.MapClaims{"name": "bob"})

	_, err := verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	verifier := NewJWTVerifier("secret")
	_, err := verifier.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
