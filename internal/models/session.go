package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Identity is the minimal user information cached next to the tokens
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// Session holds the credentials of one logged in user. The access and refresh
// tokens are opaque strings issued by the user-account API.
type Session struct {
	AccessToken  string
	RefreshToken string
	Identity     Identity
}

// Complete reports whether both tokens are present. Only complete sessions are
// ever persisted.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// AccessTokenExpiry returns the "exp" claim of the access token when the token
// happens to be a JWT. The signature is not verified, the value is informative only.
func (s Session) AccessTokenExpiry() (time.Time, bool) {
	if s.AccessToken == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// String implements the Stringer interface for printing the session in logs
func (s Session) String() string {
	return fmt.Sprintf(
		"Session<UserID: %s, Name: %s, AccessToken: %s, RefreshToken: %s>",
		s.Identity.UserID,
		s.Identity.Name,
		redact(s.AccessToken),
		redact(s.RefreshToken),
	)
}

func redact(value string) string {
	if value == "" {
		return "none"
	}
	return "redacted"
}
