package config

import "fmt"

type RunningEnvironment string

const Development RunningEnvironment = "development"
const Production RunningEnvironment = "production"

type Config struct {
	RunningEnvironment RunningEnvironment
	DebugMode          bool
	Server             ServerConfig
	Upstream           UpstreamConfig
	TokenStore         TokenStoreConfig
	Redis              RedisConfig
	Sessions           SessionConfig
	Monitoring         MonitoringConfig
}

func (c *Config) Validate() error {
	if c.RunningEnvironment != Development && c.RunningEnvironment != Production {
		return fmt.Errorf("unknown running environment %q (must be one of development or production)", c.RunningEnvironment)
	}
	err := c.Server.Validate()
	if err != nil {
		return err
	}
	err = c.Upstream.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	err = c.TokenStore.Validate()
	if err != nil {
		return err
	}
	err = c.Redis.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	err = c.Sessions.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	return nil
}
