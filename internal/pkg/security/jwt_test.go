package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/internal/api/config"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(config.JWTConfig{Secret: "s3cret", ExpireHours: 1})

	token, err := issuer.GenerateToken("u1", "member", 3)
	require.NoError(t, err)

	claims, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "member", claims.Role)
	assert.Equal(t, int64(3), claims.TokenVersion)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer(config.JWTConfig{Secret: "a"}).GenerateToken("u1", "member", 0)
	require.NoError(t, err)

	_, err = NewTokenIssuer(config.JWTConfig{Secret: "b"}).ValidateToken(token)
	assert.Error(t, err)

	_, err = NewTokenIssuer(config.JWTConfig{Secret: "a"}).ValidateToken("not.a.token")
	assert.Error(t, err)
}
