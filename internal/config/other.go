package config

import "fmt"

type ServerConfig struct {
	Host        string
	Port        int
	RateLimits  RateLimits
	AllowOrigin []string
}

func (c ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Port)
	}
	return c.RateLimits.Validate()
}

type SentryConfig struct {
	Enabled     bool
	Dsn         RedactedString
	Environment string
	SampleRate  float64
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type MonitoringConfig struct {
	Sentry     SentryConfig
	Prometheus PrometheusConfig
}

type RateLimits struct {
	Enabled bool
	Rate    float64
	Burst   int
}

func (r RateLimits) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Rate <= 0 {
		return fmt.Errorf("rate limit rate has to be greater than 0, got %v", r.Rate)
	}
	if r.Burst <= 0 {
		return fmt.Errorf("rate limit burst has to be greater than 0, got %d", r.Burst)
	}
	return nil
}
