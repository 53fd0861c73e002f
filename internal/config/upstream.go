package config

import (
	"fmt"
	"net/url"
	"time"
)

// UpstreamConfig describes how to reach the user-account API
type UpstreamConfig struct {
	BaseURL *url.URL
	// Timeout of a single HTTP exchange, 0 keeps the transport default
	Timeout time.Duration
	// RetryMax is the number of transport level retries on connection errors, only for
	// idempotent methods
	RetryMax   int
	RateLimits RateLimits
}

func (c UpstreamConfig) Validate(e RunningEnvironment) error {
	if c.BaseURL == nil {
		return fmt.Errorf("the upstream config is missing the base url of the user-account API")
	}
	if c.BaseURL.Scheme != "http" && c.BaseURL.Scheme != "https" {
		return fmt.Errorf("the upstream base url has an unsupported scheme %q", c.BaseURL.Scheme)
	}
	if e != Development && c.BaseURL.Scheme != "https" {
		return fmt.Errorf("the upstream base url has to use https in production")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("the upstream timeout cannot be negative")
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("the upstream retry max cannot be negative")
	}
	return c.RateLimits.Validate()
}
