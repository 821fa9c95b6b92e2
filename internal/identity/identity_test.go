package identity_test

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatgogo/client/internal/identity"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestFromToken(t *testing.T) {
	exp := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	tok := signedToken(t, jwt.MapClaims{
		"anon_id":      "a1",
		"display_name": "Stranger",
		"exp":          exp.Unix(),
		"iss":          "chatgogo-service",
	})

	ident, err := identity.FromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "a1", ident.UserID)
	assert.Equal(t, "Stranger", ident.DisplayName)
	assert.Equal(t, exp.Unix(), ident.ExpiresAt.Unix())
}

func TestFromTokenWithoutAnonID(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{"iss": "chatgogo-service"})

	_, err := identity.FromToken(tok)
	assert.ErrorIs(t, err, identity.ErrNoAnonID)
}

func TestFromTokenGarbage(t *testing.T) {
	_, err := identity.FromToken("not-a-jwt")
	assert.Error(t, err)
}
