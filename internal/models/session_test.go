package models

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionComplete(t *testing.T) {
	assert.True(t, Session{AccessToken: "a", RefreshToken: "r"}.Complete())
	assert.False(t, Session{AccessToken: "a"}.Complete())
	assert.False(t, Session{RefreshToken: "r"}.Complete())
	assert.False(t, Session{}.Complete())
}

func TestSessionStringRedactsTokens(t *testing.T) {
	session := Session{
		AccessToken:  "secret-access",
		RefreshToken: "secret-refresh",
		Identity:     Identity{UserID: "jdoe", Name: "John"},
	}

	output := session.String()

	assert.NotContains(t, output, "secret-access")
	assert.NotContains(t, output, "secret-refresh")
	assert.Contains(t, output, "jdoe")
}

func TestAccessTokenExpiryFromJWT(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	expiry, ok := Session{AccessToken: signed}.AccessTokenExpiry()

	assert.True(t, ok)
	assert.True(t, expiresAt.Equal(expiry))
}

func TestAccessTokenExpiryOpaqueToken(t *testing.T) {
	_, ok := Session{AccessToken: "opaque-token"}.AccessTokenExpiry()

	assert.False(t, ok)
}

func TestLoginResponseSession(t *testing.T) {
	response := LoginResponse{AccessToken: "a", RefreshToken: "r", UserID: "jdoe", Name: "John"}

	session := response.Session()

	assert.Equal(t, Session{AccessToken: "a", RefreshToken: "r", Identity: Identity{UserID: "jdoe", Name: "John"}}, session)
}
