// Package userapi exposes one typed operation per endpoint of the user-account API for a
// single browser session.
package userapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/upstream"
)

type TokenStore interface {
	Save(ctx context.Context, session models.Session) error
	Clear(ctx context.Context) (bool, error)
	AccessToken(ctx context.Context) string
	IsAuthenticated(ctx context.Context) bool
	CurrentIdentity(ctx context.Context) (models.Identity, bool)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req upstream.Request) (upstream.Response, error)
}

type AuthAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) error
}

type SessionMetrics interface {
	UserLoggedIn()
	UserLoggedOut()
}

type Client struct {
	tokenStore TokenStore
	dispatcher Dispatcher
	authAPI    AuthAPI
	metrics    SessionMetrics
}

// Login authenticates against the user-account API and saves the returned session
func (c *Client) Login(ctx context.Context, userID, password string) (models.Identity, error) {
	res, err := c.authAPI.Login(ctx, models.LoginRequest{UserID: userID, Password: password})
	if err != nil {
		return models.Identity{}, err
	}
	session := res.Session()
	err = c.tokenStore.Save(ctx, session)
	if err != nil {
		return models.Identity{}, err
	}
	if c.metrics != nil {
		c.metrics.UserLoggedIn()
	}
	slog.Info("USER API", "message", "user logged in", "userID", session.Identity.UserID)
	return session.Identity, nil
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) error {
	return c.authAPI.Register(ctx, req)
}

// Logout tells the user-account API about the logout and always clears the local session.
// A failure of the remote call is only logged.
func (c *Client) Logout(ctx context.Context) error {
	identity, found := c.tokenStore.CurrentIdentity(ctx)
	if found {
		_, err := c.dispatcher.Dispatch(ctx, upstream.Request{
			Method: http.MethodPost,
			Path:   "/auth/logout",
			Query:  url.Values{"userId": []string{identity.UserID}},
		})
		if err != nil {
			slog.Warn("USER API", "message", "the remote logout failed", "userID", identity.UserID, "error", err)
		}
	}
	_, err := c.tokenStore.Clear(ctx)
	if err != nil {
		return err
	}
	if found && c.metrics != nil {
		c.metrics.UserLoggedOut()
	}
	return nil
}

func (c *Client) IsAuthenticated(ctx context.Context) bool {
	return c.tokenStore.IsAuthenticated(ctx)
}

func (c *Client) CurrentIdentity(ctx context.Context) (models.Identity, bool) {
	return c.tokenStore.CurrentIdentity(ctx)
}

// AccessToken returns the token of the current session, mostly to report its expiry
func (c *Client) AccessToken(ctx context.Context) string {
	return c.tokenStore.AccessToken(ctx)
}

// IsOwnAccount reports whether userID is the user of this session
func (c *Client) IsOwnAccount(ctx context.Context, userID string) bool {
	identity, found := c.tokenStore.CurrentIdentity(ctx)
	return found && identity.UserID != "" && identity.UserID == userID
}

func (c *Client) Me(ctx context.Context) (models.User, error) {
	user := models.User{}
	err := c.call(ctx, upstream.Request{Method: http.MethodGet, Path: "/users/me"}, &user)
	return user, err
}

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := c.call(ctx, upstream.Request{Method: http.MethodGet, Path: "/users"}, &users)
	return users, err
}

func (c *Client) GetUser(ctx context.Context, id string) (models.User, error) {
	user := models.User{}
	err := c.call(ctx, upstream.Request{Method: http.MethodGet, Path: userPath(id)}, &user)
	return user, err
}

func (c *Client) CreateUser(ctx context.Context, req models.UserRequest) (models.User, error) {
	user := models.User{}
	err := c.call(ctx, upstream.Request{Method: http.MethodPost, Path: "/users", Body: req}, &user)
	return user, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, update models.UserUpdate) (models.User, error) {
	user := models.User{}
	err := c.call(ctx, upstream.Request{Method: http.MethodPut, Path: userPath(id), Body: update}, &user)
	return user, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.call(ctx, upstream.Request{Method: http.MethodDelete, Path: userPath(id)}, nil)
}

// UpdateMe updates the user of this session, the record is addressed by its index
func (c *Client) UpdateMe(ctx context.Context, update models.UserUpdate) (models.User, error) {
	me, err := c.Me(ctx)
	if err != nil {
		return models.User{}, err
	}
	return c.UpdateUser(ctx, fmt.Sprint(me.UserIndex), update)
}

// DeleteMe deletes the user of this session and then ends the session
func (c *Client) DeleteMe(ctx context.Context) error {
	me, err := c.Me(ctx)
	if err != nil {
		return err
	}
	err = c.DeleteUser(ctx, fmt.Sprint(me.UserIndex))
	if err != nil {
		return err
	}
	_, err = c.tokenStore.Clear(ctx)
	return err
}

func (c *Client) call(ctx context.Context, req upstream.Request, output any) error {
	res, err := c.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return err
	}
	if output == nil {
		return nil
	}
	return res.Decode(output)
}

func userPath(id string) string {
	return "/users/" + url.PathEscape(id)
}

type ClientOption func(*Client) error

func WithTokenStore(tokenStore TokenStore) ClientOption {
	return func(c *Client) error {
		c.tokenStore = tokenStore
		return nil
	}
}

func WithDispatcher(dispatcher Dispatcher) ClientOption {
	return func(c *Client) error {
		c.dispatcher = dispatcher
		return nil
	}
}

func WithAuthAPI(authAPI AuthAPI) ClientOption {
	return func(c *Client) error {
		c.authAPI = authAPI
		return nil
	}
}

func WithMetrics(m SessionMetrics) ClientOption {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

func NewClient(options ...ClientOption) (*Client, error) {
	c := Client{}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Client{}, err
		}
	}
	if c.tokenStore == nil {
		return &Client{}, fmt.Errorf("token store not initialized")
	}
	if c.dispatcher == nil {
		return &Client{}, fmt.Errorf("dispatcher not initialized")
	}
	if c.authAPI == nil {
		return &Client{}, fmt.Errorf("auth API not initialized")
	}
	return &c, nil
}
