package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const envPrefix string = "USERADMIN"

type ConfigHandler struct {
	mainViper   *viper.Viper
	secretViper *viper.Viper
	lock        *sync.Mutex
}

func (c *ConfigHandler) HandleChanges(callback func(Config, error)) {
	c.mainViper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("main config file changed", "path", e.Name)
		callback(c.Config())
	})
	c.secretViper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("secret config file changed", "path", e.Name)
		callback(c.Config())
	})
}

// Creates a configuration handler that reads the configuration files, merges them and can watch
// them for changes. Please note that the merges replace whole arrays - they do not merge arrays.
// The order of preference from most preferred to least is environment variables, secret config,
// non-secret config, defaults.
func NewConfigHandler() *ConfigHandler {
	main := viper.New()
	main.SetConfigType("yaml")
	main.SetConfigName("config")
	setDefaults(main)
	secret := viper.New()
	secret.SetConfigType("yaml")
	secret.SetConfigName("secret_config")
	// Viper will look through the list of paths and use the first one where there is a file
	// so the path specified in the env variable will always take precedence over the rest
	configPaths := []string{}
	configPathEnv := os.Getenv("CONFIG_LOCATION")
	if configPathEnv != "" {
		configPaths = append(configPaths, configPathEnv)
	}
	configPaths = append(configPaths, "/etc/useradmin-gateway", ".")
	for _, path := range configPaths {
		main.AddConfigPath(path)
		secret.AddConfigPath(path)
	}
	return &ConfigHandler{secretViper: secret, mainViper: main, lock: &sync.Mutex{}}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runningEnvironment", string(Production))
	v.SetDefault("debugMode", false)
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("upstream.baseURL", "")
	v.SetDefault("upstream.timeout", "30s")
	v.SetDefault("upstream.retryMax", 0)
	v.SetDefault("tokenStore.prefix", "useradmin")
	v.SetDefault("tokenStore.tokenEncryption.enabled", false)
	v.SetDefault("tokenStore.tokenEncryption.secretKey", "")
	v.SetDefault("redis.type", DBTypeRedis)
	v.SetDefault("redis.addresses", []string{})
	v.SetDefault("redis.password", "")
	v.SetDefault("sessions.cookieName", "_useradmin_session")
	v.SetDefault("sessions.cookieSecure", true)
	v.SetDefault("sessions.cookieHashKey", "")
	v.SetDefault("sessions.idleSessionTTLSeconds", 8*60*60)
	v.SetDefault("sessions.maxSessionTTLSeconds", 24*60*60)
	v.SetDefault("sessions.sweepIntervalSeconds", 60)
	v.SetDefault("monitoring.sentry.enabled", false)
	v.SetDefault("monitoring.sentry.dsn", "")
	v.SetDefault("monitoring.prometheus.enabled", false)
	v.SetDefault("monitoring.prometheus.port", 9090)
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			parseStringAsURL(),
		),
	)
}

// merge overwrites the main configuration with the secret configuration and
// the environment variables bound to it.
func (c *ConfigHandler) merge() error {
	var cm map[string]any
	err := c.secretViper.Unmarshal(&cm)
	if err != nil {
		return err
	}
	return c.mainViper.MergeConfigMap(cm)
}

func (c *ConfigHandler) getConfig() (Config, error) {
	var output Config
	err := c.mainViper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		slog.Info("could not find any config files - only the defaults and environment variables will be used")
	}
	err = c.secretViper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		slog.Info("could not find any secret config files - only the public file and environment variables will be used")
	}
	// the env variables will overwrite stuff in the secret config if set
	for _, key := range c.mainViper.AllKeys() {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		err := c.secretViper.BindEnv(key, envKey)
		if err != nil {
			return Config{}, fmt.Errorf("config: unable to bind env %s: %w", envKey, err)
		}
	}
	// here the secret config (with any env variables merged) will overwrite anything from the non-secret configuration
	err = c.merge()
	if err != nil {
		return Config{}, err
	}
	err = c.mainViper.Unmarshal(&output, decodeHook())
	if err != nil {
		return Config{}, err
	}
	err = output.Validate()
	if err != nil {
		return Config{}, err
	}
	return output, nil
}

func (c *ConfigHandler) Config() (Config, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.getConfig()
}

func (c *ConfigHandler) Watch() {
	c.mainViper.WatchConfig()
	c.secretViper.WatchConfig()
}

func parseStringAsURL() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (interface{}, error) {
		// Check that the data is string
		if f.Kind() != reflect.String {
			return data, nil
		}

		// Check that the target type is a URL or a pointer to one
		if t != reflect.TypeOf(url.URL{}) && t != reflect.TypeOf(&url.URL{}) {
			return data, nil
		}

		// Return the parsed value
		dataStr, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("cannot cast URL value to string")
		}
		// an empty value leaves a *url.URL unset so that Validate can report it
		if dataStr == "" {
			return nil, nil
		}
		url, err := url.Parse(dataStr)
		if err != nil {
			return nil, err
		}
		return url, nil
	}
}
