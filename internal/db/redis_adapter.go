package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/config"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	accessTokenKey  string = "accessToken"
	refreshTokenKey string = "refreshToken"
	userKey         string = "user"
)

// The scripts run atomically on the server. The refresh token guard compares the stored value
// byte by byte, the caller checks beforehand that it decrypts to the expected token.
const (
	// ARGV[4] is the TTL in milliseconds, 0 keeps the keys forever
	setSessionScript string = `
redis.call('MSET', KEYS[1], ARGV[1], KEYS[2], ARGV[2], KEYS[3], ARGV[3])
local ttl = tonumber(ARGV[4])
if ttl > 0 then
  for i = 1, 3 do
    redis.call('PEXPIRE', KEYS[i], ttl)
  end
end
return 1
`
	setAccessTokenScript string = `
if redis.call('GET', KEYS[2]) ~= ARGV[1] then
  return 0
end
if redis.call('SET', KEYS[1], ARGV[2], 'XX', 'KEEPTTL') then
  return 1
end
return 0
`
	removeSessionScript string = `
if redis.call('GET', KEYS[2]) ~= ARGV[1] then
  return 0
end
return redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
`
)

// RedisAdapter persists the credentials of each browser session as three plain redis
// strings under "<prefix>:<namespace>:". Multi-key commands and scripts are used so that a session
// is always written, read and removed as a whole.
type RedisAdapter struct {
	rdb       LimitedRedisClient
	encryptor models.Encryptor
	prefix    string
	ttl       time.Duration
}

func (r *RedisAdapter) keys(namespace string) (access, refresh, user string) {
	base := namespace
	if r.prefix != "" {
		base = r.prefix + ":" + namespace
	}
	return base + ":" + accessTokenKey, base + ":" + refreshTokenKey, base + ":" + userKey
}

func (r *RedisAdapter) encrypt(value string) (string, error) {
	if r.encryptor == nil {
		return value, nil
	}
	return r.encryptor.Encrypt(value)
}

func (r *RedisAdapter) decrypt(value string) (string, error) {
	if r.encryptor == nil {
		return value, nil
	}
	return r.encryptor.Decrypt(value)
}

// GetSession reads all three keys at once. A namespace where any of the keys is missing
// is reported as gwerrors.ErrSessionNotFound.
func (r *RedisAdapter) GetSession(ctx context.Context, namespace string) (models.Session, error) {
	accessKey, refreshKey, identityKey := r.keys(namespace)
	vals, err := r.rdb.MGet(ctx, accessKey, refreshKey, identityKey).Result()
	if err != nil {
		return models.Session{}, err
	}
	raw := make([]string, len(vals))
	present := 0
	for i, val := range vals {
		str, ok := val.(string)
		if !ok || str == "" {
			continue
		}
		raw[i] = str
		present++
	}
	if present == 0 {
		return models.Session{}, gwerrors.ErrSessionNotFound
	}
	if present < len(vals) {
		slog.Warn(
			"REDIS ADAPTER",
			"message",
			"found a partially persisted session, treating it as absent",
			"namespace",
			namespace,
			"keysPresent",
			present,
		)
		return models.Session{}, gwerrors.ErrSessionNotFound
	}
	accessToken, err := r.decrypt(raw[0])
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: cannot decrypt the access token: %w", gwerrors.ErrSessionParse, err)
	}
	refreshToken, err := r.decrypt(raw[1])
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: cannot decrypt the refresh token: %w", gwerrors.ErrSessionParse, err)
	}
	var identity models.Identity
	err = json.NewDecoder(strings.NewReader(raw[2])).Decode(&identity)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %w", gwerrors.ErrSessionParse, err)
	}
	return models.Session{AccessToken: accessToken, RefreshToken: refreshToken, Identity: identity}, nil
}

// SetSession writes the tokens, the identity and their expiry in a single script
func (r *RedisAdapter) SetSession(ctx context.Context, namespace string, session models.Session) error {
	if !session.Complete() {
		return gwerrors.ErrIncompleteSession
	}
	accessToken, err := r.encrypt(session.AccessToken)
	if err != nil {
		return err
	}
	refreshToken, err := r.encrypt(session.RefreshToken)
	if err != nil {
		return err
	}
	identity, err := json.Marshal(session.Identity)
	if err != nil {
		return err
	}
	accessKey, refreshKey, identityKey := r.keys(namespace)
	return r.rdb.Eval(
		ctx,
		setSessionScript,
		[]string{accessKey, refreshKey, identityKey},
		accessToken,
		refreshToken,
		string(identity),
		strconv.FormatInt(r.ttl.Milliseconds(), 10),
	).Err()
}

// storedRefreshToken returns the raw value of the refresh token key when it decrypts to refreshToken
func (r *RedisAdapter) storedRefreshToken(ctx context.Context, refreshKey, refreshToken string) (string, bool, error) {
	vals, err := r.rdb.MGet(ctx, refreshKey).Result()
	if err != nil {
		return "", false, err
	}
	raw, ok := vals[0].(string)
	if !ok || raw == "" {
		return "", false, nil
	}
	stored, err := r.decrypt(raw)
	if err != nil {
		return "", false, fmt.Errorf("%w: cannot decrypt the refresh token: %w", gwerrors.ErrSessionParse, err)
	}
	return raw, stored == refreshToken, nil
}

// SetAccessToken replaces only the access token of the session that holds refreshToken.
// It returns false without writing anything when the session was removed or replaced.
func (r *RedisAdapter) SetAccessToken(
	ctx context.Context,
	namespace string,
	refreshToken string,
	accessToken string,
) (bool, error) {
	if accessToken == "" || refreshToken == "" {
		return false, gwerrors.ErrIncompleteSession
	}
	accessKey, refreshKey, _ := r.keys(namespace)
	raw, found, err := r.storedRefreshToken(ctx, refreshKey, refreshToken)
	if err != nil || !found {
		return false, err
	}
	encrypted, err := r.encrypt(accessToken)
	if err != nil {
		return false, err
	}
	updated, err := r.rdb.Eval(ctx, setAccessTokenScript, []string{accessKey, refreshKey}, raw, encrypted).Int64()
	if err != nil {
		return false, err
	}
	return updated == 1, nil
}

// RemoveSession deletes all keys of the namespace and reports whether any existed
func (r *RedisAdapter) RemoveSession(ctx context.Context, namespace string) (bool, error) {
	accessKey, refreshKey, identityKey := r.keys(namespace)
	removed, err := r.rdb.Del(ctx, accessKey, refreshKey, identityKey).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// RemoveSessionIfCurrent deletes the session only while it still holds refreshToken
func (r *RedisAdapter) RemoveSessionIfCurrent(ctx context.Context, namespace string, refreshToken string) (bool, error) {
	if refreshToken == "" {
		return false, nil
	}
	accessKey, refreshKey, identityKey := r.keys(namespace)
	raw, found, err := r.storedRefreshToken(ctx, refreshKey, refreshToken)
	if err != nil || !found {
		return false, err
	}
	removed, err := r.rdb.Eval(ctx, removeSessionScript, []string{accessKey, refreshKey, identityKey}, raw).Int64()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

type RedisAdapterOption func(*RedisAdapter) error

func WithRedisConfig(redisConfig config.RedisConfig) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		switch redisConfig.Type {
		case config.DBTypeRedis:
			if redisConfig.IsSentinel {
				rdb := redis.NewFailoverClient(&redis.FailoverOptions{
					MasterName:       redisConfig.MasterName,
					SentinelAddrs:    redisConfig.Addresses,
					Password:         string(redisConfig.Password),
					DB:               redisConfig.DBIndex,
					SentinelPassword: string(redisConfig.Password),
				})
				r.rdb = rdb
				return nil
			}
			if len(redisConfig.Addresses) == 0 {
				return fmt.Errorf("at least one redis address is required")
			}
			rdb := redis.NewClient(&redis.Options{
				Password: string(redisConfig.Password),
				DB:       redisConfig.DBIndex,
				Addr:     redisConfig.Addresses[0],
			})
			r.rdb = rdb
			return nil
		case config.DBTypeRedisMock:
			r.rdb = NewMockRedisClient()
			return nil
		default:
			return fmt.Errorf("unrecognized persistence type %v", redisConfig.Type)
		}
	}
}

// WithRedisClient uses an already configured client, mostly useful in tests
func WithRedisClient(client LimitedRedisClient) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		r.rdb = client
		return nil
	}
}

func WithEncryption(secretKey string) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		encryptor, err := NewGCMEncryptor(secretKey)
		if err != nil {
			return err
		}
		r.encryptor = encryptor
		return nil
	}
}

func WithTokenStoreConfig(c config.TokenStoreConfig) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		r.prefix = c.Prefix
		if !c.TokenEncryption.Enabled {
			return nil
		}
		return WithEncryption(string(c.TokenEncryption.SecretKey))(r)
	}
}

// WithKeyTTL sets an expiry on the persisted keys, zero keeps them forever
func WithKeyTTL(ttl time.Duration) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		if ttl < 0 {
			return fmt.Errorf("the key TTL cannot be negative")
		}
		r.ttl = ttl
		return nil
	}
}

func NewRedisAdapter(options ...RedisAdapterOption) (*RedisAdapter, error) {
	db := RedisAdapter{}
	for _, opt := range options {
		err := opt(&db)
		if err != nil {
			return &RedisAdapter{}, err
		}
	}
	if db.rdb == nil {
		return &RedisAdapter{}, fmt.Errorf("redis client is not initialized")
	}
	return &db, nil
}
