package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/config"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/db"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/upstream"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHashKey string = "0123456789abcdef0123456789abcdef"

var errHandler = errors.New("handler failed")

// newFakeAuthServer accepts any user with the password "secret"
func newFakeAuthServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			req := models.LoginRequest{}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(models.LoginResponse{
				AccessToken:  "access-" + req.UserID,
				RefreshToken: "refresh-" + req.UserID,
				UserID:       req.UserID,
				Name:         req.UserID,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClientMaker(t *testing.T) ClientMaker {
	server := newFakeAuthServer(t)
	baseURL, err := url.Parse(server.URL)
	require.NoError(t, err)
	transport, err := upstream.NewClient(upstream.WithBaseURL(baseURL))
	require.NoError(t, err)
	adapter, err := db.NewMockRedisAdapter()
	require.NoError(t, err)
	clientMaker, err := NewClientMaker(
		WithSessionRepository(adapter),
		WithTransport(transport),
		WithAuthEndpoints(upstream.NewAuthAPI(transport)),
	)
	require.NoError(t, err)
	return clientMaker
}

type testClock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *testClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		CookieName:            SessionCookieName,
		CookieSecure:          true,
		CookieHashKey:         config.RedactedString(testHashKey),
		IdleSessionTTLSeconds: 60,
		MaxSessionTTLSeconds:  3600,
		SweepIntervalSeconds:  10,
	}
}

func setupRegistry(t *testing.T, options ...RegistryOption) *Registry {
	registry, err := NewRegistry(append([]RegistryOption{
		WithClientMaker(newTestClientMaker(t)),
		WithConfig(testSessionConfig()),
	}, options...)...)
	require.NoError(t, err)
	return registry
}

func setupEchoContext(cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func responseCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry(WithConfig(testSessionConfig()))
	assert.ErrorContains(t, err, "client maker")

	sessionConfig := testSessionConfig()
	sessionConfig.SweepIntervalSeconds = 0
	_, err = NewRegistry(WithClientMaker(newTestClientMaker(t)), WithConfig(sessionConfig))
	assert.ErrorContains(t, err, "sweep interval")
}

func TestNewClientMakerValidation(t *testing.T) {
	_, err := NewClientMaker()
	assert.ErrorContains(t, err, "session repository")
}

func TestAcquireSharesClients(t *testing.T) {
	registry := setupRegistry(t)

	first, err := registry.Acquire("session-1")
	require.NoError(t, err)
	second, err := registry.Acquire("session-1")
	require.NoError(t, err)
	other, err := registry.Acquire("session-2")
	require.NoError(t, err)

	assert.Same(t, first.Client, second.Client)
	assert.NotSame(t, first.Client, other.Client)
	assert.Equal(t, 2, registry.Len())

	_, err = registry.Acquire("")
	assert.Error(t, err)
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	registry := setupRegistry(t)
	alice, err := registry.Acquire("session-1")
	require.NoError(t, err)
	defer alice.Release()
	anonymous, err := registry.Acquire("session-2")
	require.NoError(t, err)
	defer anonymous.Release()

	identity, err := alice.Client.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	assert.Equal(t, "alice", identity.UserID)
	assert.True(t, alice.Client.IsAuthenticated(ctx))
	assert.False(t, anonymous.Client.IsAuthenticated(ctx))
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	registry := setupRegistry(t, WithClock(clock.Now))
	held, err := registry.Acquire("held")
	require.NoError(t, err)
	idle, err := registry.Acquire("idle")
	require.NoError(t, err)
	idle.Release()
	idle.Release()

	clock.Advance(30 * time.Second)
	assert.Equal(t, 0, registry.Sweep())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, registry.Sweep())
	assert.Equal(t, 1, registry.Len())

	held.Release()
	assert.Equal(t, 0, registry.Sweep())
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, registry.Sweep())
	assert.Equal(t, 0, registry.Len())
}

func TestEvictedSessionKeepsTokens(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	registry := setupRegistry(t, WithClock(clock.Now))
	lease, err := registry.Acquire("session-1")
	require.NoError(t, err)
	_, err = lease.Client.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	lease.Release()

	clock.Advance(time.Hour)
	require.Equal(t, 1, registry.Sweep())
	lease, err = registry.Acquire("session-1")
	require.NoError(t, err)
	defer lease.Release()

	assert.True(t, lease.Client.IsAuthenticated(ctx))
}

func TestGetScheduler(t *testing.T) {
	registry := setupRegistry(t)

	s, err := registry.GetScheduler()

	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestMiddlewareStartsSession(t *testing.T) {
	registry := setupRegistry(t)
	c, rec := setupEchoContext()
	var sessionID string

	err := registry.Middleware()(func(c echo.Context) error {
		client, err := GetClient(c)
		require.NoError(t, err)
		assert.NotNil(t, client)
		sessionID = c.Get(SessionIDCtxKey).(string)
		return nil
	})(c)

	require.NoError(t, err)
	cookie := responseCookie(t, rec)
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.NotEqual(t, sessionID, cookie.Value)
	var decoded string
	err = securecookie.New([]byte(testHashKey), nil).Decode(SessionCookieName, cookie.Value, &decoded)
	require.NoError(t, err)
	assert.Equal(t, sessionID, decoded)
}

func TestMiddlewareReusesSession(t *testing.T) {
	registry := setupRegistry(t)
	c, rec := setupEchoContext()
	var first, second any
	err := registry.Middleware()(func(c echo.Context) error {
		first = c.Get(SessionCtxKey)
		return nil
	})(c)
	require.NoError(t, err)
	cookie := responseCookie(t, rec)

	c, rec = setupEchoContext(cookie)
	err = registry.Middleware()(func(c echo.Context) error {
		second = c.Get(SessionCtxKey)
		return nil
	})(c)

	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 1, registry.Len())
}

func TestMiddlewareIgnoresTamperedCookie(t *testing.T) {
	registry := setupRegistry(t)
	forged, err := securecookie.New([]byte("another-hash-key-another-hash-ke"), nil).Encode(SessionCookieName, "victim")
	require.NoError(t, err)
	c, rec := setupEchoContext(&http.Cookie{Name: SessionCookieName, Value: forged})
	var sessionID string

	err = registry.Middleware()(func(c echo.Context) error {
		sessionID = c.Get(SessionIDCtxKey).(string)
		return nil
	})(c)

	require.NoError(t, err)
	assert.NotEqual(t, "victim", sessionID)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestUnsignedCookie(t *testing.T) {
	sessionConfig := testSessionConfig()
	sessionConfig.CookieHashKey = ""
	sessionConfig.CookieSecure = false
	registry := setupRegistry(t, WithConfig(sessionConfig))
	c, rec := setupEchoContext()
	var sessionID string

	err := registry.Middleware()(func(c echo.Context) error {
		sessionID = c.Get(SessionIDCtxKey).(string)
		return nil
	})(c)

	require.NoError(t, err)
	cookie := responseCookie(t, rec)
	assert.Equal(t, sessionID, cookie.Value)
	assert.False(t, cookie.Secure)
}

func TestMiddlewareReleasesLease(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	registry := setupRegistry(t, WithClock(clock.Now))
	c, _ := setupEchoContext()

	err := registry.Middleware()(func(c echo.Context) error {
		clock.Advance(time.Hour)
		assert.Equal(t, 0, registry.Sweep())
		return errHandler
	})(c)

	assert.ErrorIs(t, err, errHandler)
	clock.Advance(time.Hour)
	assert.Equal(t, 1, registry.Sweep())
}

func TestGetClientWithoutMiddleware(t *testing.T) {
	c, _ := setupEchoContext()
	_, err := GetClient(c)
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)

	c.Set(SessionCtxKey, "not a client")
	_, err = GetClient(c)
	assert.ErrorIs(t, err, gwerrors.ErrSessionParse)
}
