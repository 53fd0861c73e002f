package config

import (
	"log/slog"
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createConfigFile(fpath string) error {
	contents := `---
upstream:
  baseURL: https://accounts.example.org/api
  timeout: 10s
redis:
  addresses:
    - localhost:6379
sessions:
  idleSessionTTLSeconds: 3600
`
	return os.WriteFile(fpath, []byte(contents), 0666)
}

func createSecretFile(fpath string) error {
	contents := `---
tokenStore:
  tokenEncryption:
    enabled: true
    secretKey: token-encryption-key-from-file12
sessions:
  cookieHashKey: cookie-hash-key-from-secret-file-0123456789
redis:
  password: redis-password-from-secret-file
`
	return os.WriteFile(fpath, []byte(contents), 0666)
}

func TestReadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CONFIG_LOCATION", tmpDir)
	require.NoError(t, createConfigFile(path.Join(tmpDir, "config.yaml")))
	require.NoError(t, createSecretFile(path.Join(tmpDir, "secret_config.yaml")))
	ch := NewConfigHandler()
	config, err := ch.Config()
	require.NoError(t, err)
	assert.NotEqual(t, config, Config{})
	assert.Equal(t, Production, config.RunningEnvironment)
	assert.Equal(t, "https://accounts.example.org/api", config.Upstream.BaseURL.String())
	assert.Equal(t, 10*time.Second, config.Upstream.Timeout)
	assert.Equal(t, []string{"localhost:6379"}, config.Redis.Addresses)
	assert.Equal(t, 3600, config.Sessions.IdleSessionTTLSeconds)
	assert.Equal(t, 24*60*60, config.Sessions.MaxSessionTTLSeconds)
	assert.Equal(t, "_useradmin_session", config.Sessions.CookieName)
	assert.Equal(t, "useradmin", config.TokenStore.Prefix)
	assert.True(t, config.TokenStore.TokenEncryption.Enabled)
	assert.Equal(t, RedactedString("token-encryption-key-from-file12"), config.TokenStore.TokenEncryption.SecretKey)
	assert.Equal(t, RedactedString("cookie-hash-key-from-secret-file-0123456789"), config.Sessions.CookieHashKey)
	assert.Equal(t, RedactedString("redis-password-from-secret-file"), config.Redis.Password)
}

func TestReadConfigWithEnvVars(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CONFIG_LOCATION", tmpDir)
	require.NoError(t, createConfigFile(path.Join(tmpDir, "config.yaml")))
	require.NoError(t, createSecretFile(path.Join(tmpDir, "secret_config.yaml")))
	t.Setenv("USERADMIN_UPSTREAM_BASEURL", "https://staging.example.org/api")
	t.Setenv("USERADMIN_REDIS_PASSWORD", "env-var-password")
	t.Setenv("USERADMIN_TOKENSTORE_PREFIX", "staging")
	ch := NewConfigHandler()
	config, err := ch.Config()
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.org/api", config.Upstream.BaseURL.String())
	assert.Equal(t, RedactedString("env-var-password"), config.Redis.Password)
	assert.Equal(t, "staging", config.TokenStore.Prefix)
	assert.Equal(t, RedactedString("token-encryption-key-from-file12"), config.TokenStore.TokenEncryption.SecretKey)
}

func TestReadConfigWithEnvVarsNoFiles(t *testing.T) {
	t.Setenv("CONFIG_LOCATION", t.TempDir())
	t.Setenv("USERADMIN_RUNNINGENVIRONMENT", "development")
	t.Setenv("USERADMIN_UPSTREAM_BASEURL", "http://localhost:3000")
	t.Setenv("USERADMIN_REDIS_TYPE", "redis-mock")
	ch := NewConfigHandler()
	config, err := ch.Config()
	require.NoError(t, err)
	slog.Info("configuration data", "config", config)
	assert.Equal(t, Development, config.RunningEnvironment)
	assert.Equal(t, "http://localhost:3000", config.Upstream.BaseURL.String())
	assert.Equal(t, 30*time.Second, config.Upstream.Timeout)
	assert.Equal(t, DBTypeRedisMock, config.Redis.Type)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestReadConfigMissingBaseURL(t *testing.T) {
	t.Setenv("CONFIG_LOCATION", t.TempDir())
	t.Setenv("USERADMIN_RUNNINGENVIRONMENT", "development")
	t.Setenv("USERADMIN_REDIS_TYPE", "redis-mock")
	ch := NewConfigHandler()
	_, err := ch.Config()
	assert.ErrorContains(t, err, "base url")
}
