// Package sessions maps the browser session cookie to the user API client of that session.
package sessions

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/config"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/userapi"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/utils"
	"github.com/go-co-op/gocron"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
)

type entry struct {
	client   *userapi.Client
	leases   int
	lastUsed time.Time
}

// Registry caches one user API client per browser session so that all the concurrent
// requests of a browser share the same refresh coordinator. Entries that are not leased
// and have been idle for longer than the idle TTL are evicted by the sweep, the persisted
// tokens are left in redis.
type Registry struct {
	lock          sync.Mutex
	entries       map[string]*entry
	clientMaker   ClientMaker
	cookieName    string
	cookieSecure  bool
	cookieHandler *securecookie.SecureCookie
	idleTTL       time.Duration
	maxTTL        time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

// Lease keeps a registry entry alive until Release is called
type Lease struct {
	SessionID string
	Client    *userapi.Client
	registry  *Registry
	once      sync.Once
}

func (l *Lease) Release() {
	l.once.Do(func() { l.registry.release(l.SessionID) })
}

// Acquire returns a lease on the client of the session, creating the client if needed
func (r *Registry) Acquire(sessionID string) (*Lease, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("the session ID cannot be empty")
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	e, found := r.entries[sessionID]
	if !found {
		client, err := r.clientMaker.NewClient(sessionID)
		if err != nil {
			return nil, err
		}
		e = &entry{client: client}
		r.entries[sessionID] = e
	}
	e.leases++
	e.lastUsed = r.now()
	return &Lease{SessionID: sessionID, Client: e.client, registry: r}, nil
}

func (r *Registry) release(sessionID string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	e, found := r.entries[sessionID]
	if !found {
		return
	}
	e.leases--
	e.lastUsed = r.now()
}

// Sweep evicts the idle entries and returns how many were removed
func (r *Registry) Sweep() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for id, e := range r.entries {
		if e.leases > 0 || e.lastUsed.After(cutoff) {
			continue
		}
		delete(r.entries, id)
		evicted++
	}
	if evicted > 0 {
		slog.Debug("SESSIONS", "message", "evicted idle sessions", "evicted", evicted, "remaining", len(r.entries))
	}
	return evicted
}

func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.entries)
}

// GetScheduler returns a scheduler that runs the sweep, the caller starts and stops it
func (r *Registry) GetScheduler() (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(r.sweepInterval).Do(func() {
		r.Sweep()
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Registry) cookie(sessionID string) (*http.Cookie, error) {
	value := sessionID
	if r.cookieHandler != nil {
		encoded, err := r.cookieHandler.Encode(r.cookieName, sessionID)
		if err != nil {
			return nil, err
		}
		value = encoded
	}
	return &http.Cookie{
		Name:     r.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(r.maxTTL.Seconds()),
		Secure:   r.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// sessionID reads the session ID from the request cookie, tampered cookies are ignored
func (r *Registry) sessionID(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(r.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	if r.cookieHandler == nil {
		return cookie.Value, true
	}
	var sessionID string
	err = r.cookieHandler.Decode(r.cookieName, cookie.Value, &sessionID)
	if err != nil {
		slog.Info(
			"SESSION MIDDLEWARE",
			"message",
			"ignoring invalid session cookie",
			"error",
			err,
			"requestID",
			utils.GetRequestID(c),
		)
		return "", false
	}
	return sessionID, sessionID != ""
}

// Middleware leases the client of the session for the duration of the request and
// starts a new session when the request has no valid cookie.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID, found := r.sessionID(c)
			if !found {
				var err error
				sessionID, err = newSessionID()
				if err != nil {
					return err
				}
				cookie, err := r.cookie(sessionID)
				if err != nil {
					return err
				}
				c.SetCookie(cookie)
				slog.Debug("SESSION MIDDLEWARE", "message", "started a new session", "requestID", utils.GetRequestID(c))
			}
			lease, err := r.Acquire(sessionID)
			if err != nil {
				return err
			}
			defer lease.Release()
			c.Set(SessionCtxKey, lease.Client)
			c.Set(SessionIDCtxKey, sessionID)
			return next(c)
		}
	}
}

// GetClient returns the client the middleware stored in the echo context
func GetClient(c echo.Context) (*userapi.Client, error) {
	clientRaw := c.Get(SessionCtxKey)
	if clientRaw == nil {
		return nil, gwerrors.ErrSessionNotFound
	}
	client, ok := clientRaw.(*userapi.Client)
	if !ok {
		return nil, gwerrors.ErrSessionParse
	}
	return client, nil
}

type RegistryOption func(*Registry) error

func WithClientMaker(clientMaker ClientMaker) RegistryOption {
	return func(r *Registry) error {
		r.clientMaker = clientMaker
		return nil
	}
}

func WithConfig(c config.SessionConfig) RegistryOption {
	return func(r *Registry) error {
		if c.CookieName != "" {
			r.cookieName = c.CookieName
		}
		r.cookieSecure = c.CookieSecure
		r.idleTTL = time.Duration(c.IdleSessionTTLSeconds) * time.Second
		r.maxTTL = time.Duration(c.MaxSessionTTLSeconds) * time.Second
		r.sweepInterval = time.Duration(c.SweepIntervalSeconds) * time.Second
		if len(c.CookieHashKey) == 0 {
			r.cookieHandler = nil
			return nil
		}
		r.cookieHandler = securecookie.New([]byte(c.CookieHashKey), nil).MaxAge(c.MaxSessionTTLSeconds)
		return nil
	}
}

// WithClock replaces time.Now, used by the sweep tests
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) error {
		r.now = now
		return nil
	}
}

func NewRegistry(options ...RegistryOption) (*Registry, error) {
	r := Registry{
		entries:       map[string]*entry{},
		cookieName:    SessionCookieName,
		idleTTL:       8 * time.Hour,
		sweepInterval: time.Minute,
		now:           time.Now,
	}
	for _, opt := range options {
		err := opt(&r)
		if err != nil {
			return &Registry{}, err
		}
	}
	if r.clientMaker == nil {
		return &Registry{}, fmt.Errorf("client maker not initialized")
	}
	if r.idleTTL <= 0 {
		return &Registry{}, fmt.Errorf("the idle session TTL has to be positive")
	}
	if r.sweepInterval <= 0 {
		return &Registry{}, fmt.Errorf("the sweep interval has to be positive")
	}
	return &r, nil
}
