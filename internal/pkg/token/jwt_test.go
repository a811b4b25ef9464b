package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosementes/internal/pkg/token"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := token.NewService("segredo", time.Hour)

	tok, err := svc.GenerateToken("user-1", "OPERADOR")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "OPERADOR", claims.Role)
	assert.Equal(t, token.Issuer, claims.Issuer)
}

func TestValidate_Fail_WrongSecret(t *testing.T) {
	tok, err := token.NewService("segredo-a", time.Hour).GenerateToken("user-1", "ADMIN")
	require.NoError(t, err)

	_, err = token.NewService("segredo-b", time.Hour).ValidateToken(tok)
	assert.Error(t, err)
}

func TestValidate_Fail_Expired(t *testing.T) {
	svc := token.NewService("segredo", -time.Minute)

	tok, err := svc.GenerateToken("user-1", "ADMIN")
	require.NoError(t, err)

	_, err = svc.ValidateToken(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidate_Fail_MissingIdentity(t *testing.T) {
	claims := token.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    token.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("segredo"))
	require.NoError(t, err)

	_, err = token.NewService("segredo", time.Hour).ValidateToken(raw)
	assert.Error(t, err)
}

func TestValidate_Fail_OtherIssuer(t *testing.T) {
	claims := token.CustomClaims{
		UserID: "user-1",
		Role:   "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "outro-sistema",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("segredo"))
	require.NoError(t, err)

	_, err = token.NewService("segredo", time.Hour).ValidateToken(raw)
	assert.Error(t, err)
}
