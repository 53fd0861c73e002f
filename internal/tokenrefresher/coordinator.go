// Package tokenrefresher coordinates the refresh of the access token of one browser session.
package tokenrefresher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
)

type State int

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type result struct {
	accessToken string
	err         error
}

// SessionExpiredHandler is called once each time a session ends because its tokens could not be refreshed
type SessionExpiredHandler func(ctx context.Context)

// Coordinator makes sure that at most one refresh call is in flight for a token store.
// Callers that need a new token while a refresh is running wait for its result.
type Coordinator struct {
	tokenStore RefresherTokenStore
	endpoint   RefreshEndpoint
	onExpired  SessionExpiredHandler
	metrics    RefreshMetrics

	lock    sync.Mutex
	state   State
	waiters []chan result
}

func (c *Coordinator) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// Refresh returns a fresh access token. staleToken is the token that was rejected, when the
// store already holds a different one the refresh happened in the meantime and it is returned
// right away. Errors match gwerrors.ErrUnauthenticated when the session could not be renewed.
func (c *Coordinator) Refresh(ctx context.Context, staleToken string) (string, error) {
	c.lock.Lock()
	if c.state == Idle {
		current := c.tokenStore.AccessToken(ctx)
		if current != "" && current != staleToken {
			c.lock.Unlock()
			slog.Debug("TOKEN REFRESHER", "message", "the access token was already refreshed")
			return current, nil
		}
		c.state = Refreshing
		go c.run(context.WithoutCancel(ctx))
	}
	waiter := make(chan result, 1)
	c.waiters = append(c.waiters, waiter)
	numWaiters := len(c.waiters)
	c.lock.Unlock()
	slog.Debug("TOKEN REFRESHER", "message", "waiting for the refresh to complete", "waiters", numWaiters)

	select {
	case res := <-waiter:
		return res.accessToken, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Expire ends the session, it is used when even a freshly refreshed token is rejected.
// Nothing is removed when the store does not hold rejectedToken anymore.
func (c *Coordinator) Expire(ctx context.Context, rejectedToken string) error {
	session, found := c.tokenStore.Read(ctx)
	if !found || session.AccessToken != rejectedToken {
		return fmt.Errorf("%w: the session changed before it could be expired", gwerrors.ErrUnauthenticated)
	}
	return c.expire(ctx, session.RefreshToken, fmt.Errorf("the refreshed access token was rejected"))
}

func (c *Coordinator) run(ctx context.Context) {
	accessToken, err := c.refresh(ctx)
	c.lock.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = Idle
	c.lock.Unlock()
	slog.Debug(
		"TOKEN REFRESHER",
		"message",
		"refresh cycle completed",
		"waiters",
		len(waiters),
		"success",
		err == nil,
	)
	for _, waiter := range waiters {
		waiter <- result{accessToken: accessToken, err: err}
	}
}

// refresh pins the cycle to the refresh token read at its start, a session saved by a later
// login is never updated or cleared by it
func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	refreshToken := c.tokenStore.RefreshToken(ctx)
	if refreshToken == "" {
		return "", fmt.Errorf("%w: %w", gwerrors.ErrUnauthenticated, gwerrors.ErrNoRefreshToken)
	}
	accessToken, err := c.endpoint.Refresh(ctx, refreshToken)
	if c.metrics != nil {
		c.metrics.RefreshCompleted(err)
	}
	if err != nil {
		slog.Info("TOKEN REFRESHER", "message", "the refresh call failed", "error", err)
		return "", c.expire(ctx, refreshToken, err)
	}
	updated, err := c.tokenStore.UpdateAccessToken(ctx, refreshToken, accessToken)
	if err != nil {
		slog.Error("TOKEN REFRESHER", "message", "UpdateAccessToken failed", "error", err)
		return "", c.expire(ctx, refreshToken, err)
	}
	if !updated {
		// logout or a new login while the refresh was running
		return "", fmt.Errorf("%w: the session changed during the refresh", gwerrors.ErrUnauthenticated)
	}
	return accessToken, nil
}

// expire removes the session holding refreshToken and calls the expiry handler when it was
// actually removed, so concurrent failures of the same session report a single expiry.
func (c *Coordinator) expire(ctx context.Context, refreshToken string, cause error) error {
	removed, err := c.tokenStore.ClearIfCurrent(ctx, refreshToken)
	if err != nil {
		slog.Error("TOKEN REFRESHER", "message", "ClearIfCurrent failed", "error", err)
	}
	if removed {
		slog.Info("TOKEN REFRESHER", "message", "session expired", "cause", cause)
		if c.metrics != nil {
			c.metrics.SessionExpired()
		}
		if c.onExpired != nil {
			c.onExpired(ctx)
		}
	}
	return fmt.Errorf("%w: %w", gwerrors.ErrUnauthenticated, cause)
}

type CoordinatorOption func(*Coordinator) error

func WithTokenStore(tokenStore RefresherTokenStore) CoordinatorOption {
	return func(c *Coordinator) error {
		c.tokenStore = tokenStore
		return nil
	}
}

func WithRefreshEndpoint(endpoint RefreshEndpoint) CoordinatorOption {
	return func(c *Coordinator) error {
		c.endpoint = endpoint
		return nil
	}
}

func WithSessionExpiredHandler(handler SessionExpiredHandler) CoordinatorOption {
	return func(c *Coordinator) error {
		c.onExpired = handler
		return nil
	}
}

func WithMetrics(metrics RefreshMetrics) CoordinatorOption {
	return func(c *Coordinator) error {
		c.metrics = metrics
		return nil
	}
}

// NewCoordinator creates the refresh coordinator of one token store
func NewCoordinator(options ...CoordinatorOption) (*Coordinator, error) {
	c := Coordinator{state: Idle}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Coordinator{}, err
		}
	}
	if c.tokenStore == nil {
		return &Coordinator{}, fmt.Errorf("token store not initialized")
	}
	if c.endpoint == nil {
		return &Coordinator{}, fmt.Errorf("refresh endpoint not initialized")
	}
	return &c, nil
}
