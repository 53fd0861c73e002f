package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func getValidSessionConfig() SessionConfig {
	return SessionConfig{
		CookieName:            "_useradmin_session",
		CookieSecure:          true,
		CookieHashKey:         "0123456789abcdef0123456789abcdef",
		IdleSessionTTLSeconds: 14400,
		MaxSessionTTLSeconds:  86400,
		SweepIntervalSeconds:  60,
	}
}

func TestValidSessionConfig(t *testing.T) {
	config := getValidSessionConfig()

	err := config.Validate(Production)

	assert.NoError(t, err)
}

func TestInvalidIdleSessionTTLSeconds(t *testing.T) {
	config := getValidSessionConfig()
	config.IdleSessionTTLSeconds = -60

	err := config.Validate(Production)

	assert.ErrorContains(t, err, "idle session TTL seconds (-60) needs to be greater than 0")
}

func TestInvalidMaxSessionTTLSeconds(t *testing.T) {
	config := getValidSessionConfig()
	config.MaxSessionTTLSeconds = 600

	err := config.Validate(Production)

	assert.ErrorContains(t, err, "max session TTL seconds (600) cannot be less than idle session TTL seconds (14400)")
}

func TestInvalidSweepInterval(t *testing.T) {
	config := getValidSessionConfig()
	config.SweepIntervalSeconds = 0

	err := config.Validate(Production)

	assert.ErrorContains(t, err, "session sweep interval seconds (0) needs to be greater than 0")
}

func TestShortCookieHashKey(t *testing.T) {
	config := getValidSessionConfig()
	config.CookieHashKey = "short"

	err := config.Validate(Development)

	assert.ErrorContains(t, err, "at least 32 bytes long")
}

func TestUnsignedCookiesOnlyInDevelopment(t *testing.T) {
	config := getValidSessionConfig()
	config.CookieHashKey = ""
	config.CookieSecure = false

	assert.NoError(t, config.Validate(Development))
	assert.Error(t, config.Validate(Production))
}
