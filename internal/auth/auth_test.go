package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbyte/capacity-engine/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := auth.NewService("test-secret", time.Hour, "")

	token, err := svc.GenerateToken(42, "operator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "operator", claims.Username)
	assert.Equal(t, "capacity-engine", claims.Issuer)
}

func TestConfiguredIssuer(t *testing.T) {
	svc := auth.NewService("test-secret", time.Hour, "engine-staging")

	token, err := svc.GenerateToken(1, "operator")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "engine-staging", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := auth.NewService("secret-a", time.Hour, "")
	verifier := auth.NewService("secret-b", time.Hour, "")

	token, err := issuer.GenerateToken(1, "operator")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := auth.NewService("test-secret", -time.Hour, "")

	token, err := svc.GenerateToken(1, "operator")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := auth.NewService("test-secret", time.Hour, "")

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenDuration_Default(t *testing.T) {
	svc := auth.NewService("test-secret", 0, "")
	assert.Equal(t, 24*time.Hour, svc.TokenDuration())
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("S3cure!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "S3cure!pass", hash)

	assert.True(t, auth.CheckPassword("S3cure!pass", hash))
	assert.False(t, auth.CheckPassword("wrong-pass", hash))
}
