package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() Claims {
	return Claims{
		UserID: "user-123",
		Email:  "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://issuer.example",
			Audience:  jwt.ClaimStrings{"client-1"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func newValidator(t *testing.T) *JWTValidator {
	t.Helper()
	v, err := NewJWTValidator(JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     testSecret,
		Issuer:        "https://issuer.example",
		Audience:      []string{"client-1"},
	})
	require.NoError(t, err)
	return v
}

func TestValidateToken(t *testing.T) {
	v := newValidator(t)

	t.Run("valid token yields subject", func(t *testing.T) {
		claims, err := v.ValidateToken("Bearer " + signed(t, validClaims(), testSecret))
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID)
	})

	t.Run("expired", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.ValidateToken(signed(t, c, testSecret))
		assert.True(t, errors.Is(err, ErrExpiredToken))
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.ValidateToken(signed(t, validClaims(), "other"))
		assert.True(t, errors.Is(err, ErrInvalidSignature))
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := validClaims()
		c.Audience = jwt.ClaimStrings{"someone-else"}
		_, err := v.ValidateToken(signed(t, c, testSecret))
		assert.True(t, errors.Is(err, ErrInvalidClaims))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := validClaims()
		c.Issuer = "https://evil.example"
		_, err := v.ValidateToken(signed(t, c, testSecret))
		assert.True(t, errors.Is(err, ErrInvalidClaims))
	})

	t.Run("missing subject", func(t *testing.T) {
		c := validClaims()
		c.UserID = ""
		_, err := v.ValidateToken(signed(t, c, testSecret))
		assert.True(t, errors.Is(err, ErrInvalidClaims))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := v.ValidateToken("Bearer ")
		assert.True(t, errors.Is(err, ErrMissingToken))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.ValidateToken("not-a-jwt")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestNewJWTValidator_RejectsBadConfig(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{SigningMethod: "HS256"})
	assert.Error(t, err)
	_, err = NewJWTValidator(JWTConfig{SigningMethod: "RS256"})
	assert.Error(t, err)
	_, err = NewJWTValidator(JWTConfig{SigningMethod: "none"})
	assert.Error(t, err)
}

func TestCognitoIssuer(t *testing.T) {
	assert.Equal(t, "https://cognito-idp.ap-southeast-2.amazonaws.com/pool_1", CognitoIssuer("ap-southeast-2", "pool_1"))
}

func TestUserContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.Error(t, err)

	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "u1"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)
}
