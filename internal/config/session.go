package config

import "fmt"

type SessionConfig struct {
	CookieName            string
	CookieSecure          bool
	CookieHashKey         RedactedString
	IdleSessionTTLSeconds int
	MaxSessionTTLSeconds  int
	SweepIntervalSeconds  int
}

func (c SessionConfig) Validate(e RunningEnvironment) error {
	if c.CookieName == "" {
		return fmt.Errorf("the session cookie name cannot be empty")
	}
	if c.IdleSessionTTLSeconds <= 0 {
		return fmt.Errorf("idle session TTL seconds (%d) needs to be greater than 0", c.IdleSessionTTLSeconds)
	}
	if c.MaxSessionTTLSeconds > 0 && c.IdleSessionTTLSeconds > c.MaxSessionTTLSeconds {
		return fmt.Errorf("max session TTL seconds (%d) cannot be less than idle session TTL seconds (%d)", c.MaxSessionTTLSeconds, c.IdleSessionTTLSeconds)
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("session sweep interval seconds (%d) needs to be greater than 0", c.SweepIntervalSeconds)
	}
	if len(c.CookieHashKey) > 0 && len(c.CookieHashKey) < 32 {
		return fmt.Errorf("session cookie hash key has to be at least 32 bytes long, the provided one is %d long", len(c.CookieHashKey))
	}
	if e != Development {
		if !c.CookieSecure {
			return fmt.Errorf("session cookies have to be secure in production")
		}
		if len(c.CookieHashKey) == 0 {
			return fmt.Errorf("session cookies have to be signed in production")
		}
	}
	return nil
}
