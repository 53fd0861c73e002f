package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/models"
)

// TokenStore holds the credentials of a single browser session. It is the only
// component that reads or writes the persisted tokens of its namespace.
type TokenStore struct {
	namespace   string
	sessionRepo LimitedSessionRepository
	lock        sync.Mutex
}

// Save persists both tokens and the identity in one write
func (ts *TokenStore) Save(ctx context.Context, session models.Session) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	err := ts.sessionRepo.SetSession(ctx, ts.namespace, session)
	if err != nil {
		slog.Error("TOKEN STORE", "message", "SetSession failed", "namespace", ts.namespace, "error", err)
		return fmt.Errorf("cannot save the session: %w", err)
	}
	slog.Debug("TOKEN STORE", "message", "session saved", "namespace", ts.namespace, "session", session)
	return nil
}

// Read returns the persisted session. Missing, partial or unreadable sessions are all reported as absent.
func (ts *TokenStore) Read(ctx context.Context) (models.Session, bool) {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	return ts.read(ctx)
}

func (ts *TokenStore) read(ctx context.Context) (models.Session, bool) {
	session, err := ts.sessionRepo.GetSession(ctx, ts.namespace)
	if err != nil {
		if !errors.Is(err, gwerrors.ErrSessionNotFound) {
			slog.Warn(
				"TOKEN STORE",
				"message",
				"GetSession failed, treating the session as absent",
				"namespace",
				ts.namespace,
				"error",
				err,
			)
		}
		return models.Session{}, false
	}
	return session, true
}

// AccessToken returns the current access token or an empty string
func (ts *TokenStore) AccessToken(ctx context.Context) string {
	session, _ := ts.Read(ctx)
	return session.AccessToken
}

// RefreshToken returns the current refresh token or an empty string
func (ts *TokenStore) RefreshToken(ctx context.Context) string {
	session, _ := ts.Read(ctx)
	return session.RefreshToken
}

func (ts *TokenStore) IsAuthenticated(ctx context.Context) bool {
	_, found := ts.Read(ctx)
	return found
}

func (ts *TokenStore) CurrentIdentity(ctx context.Context) (models.Identity, bool) {
	session, found := ts.Read(ctx)
	return session.Identity, found
}

// UpdateAccessToken replaces the access token of the session that holds refreshToken. It returns
// false when that session is gone, either cleared or replaced by a newer login, and nothing is written.
func (ts *TokenStore) UpdateAccessToken(ctx context.Context, refreshToken string, accessToken string) (bool, error) {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	updated, err := ts.sessionRepo.SetAccessToken(ctx, ts.namespace, refreshToken, accessToken)
	if err != nil {
		slog.Error("TOKEN STORE", "message", "SetAccessToken failed", "namespace", ts.namespace, "error", err)
		return false, err
	}
	if !updated {
		slog.Debug("TOKEN STORE", "message", "the session to update is gone", "namespace", ts.namespace)
	}
	return updated, nil
}

// Clear removes the whole session. It reports whether there was anything to remove.
func (ts *TokenStore) Clear(ctx context.Context) (bool, error) {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	removed, err := ts.sessionRepo.RemoveSession(ctx, ts.namespace)
	if err != nil {
		slog.Error("TOKEN STORE", "message", "RemoveSession failed", "namespace", ts.namespace, "error", err)
		return false, err
	}
	slog.Debug("TOKEN STORE", "message", "session cleared", "namespace", ts.namespace, "removed", removed)
	return removed, nil
}

// ClearIfCurrent removes the session only while it still holds refreshToken
func (ts *TokenStore) ClearIfCurrent(ctx context.Context, refreshToken string) (bool, error) {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	removed, err := ts.sessionRepo.RemoveSessionIfCurrent(ctx, ts.namespace, refreshToken)
	if err != nil {
		slog.Error("TOKEN STORE", "message", "RemoveSessionIfCurrent failed", "namespace", ts.namespace, "error", err)
		return false, err
	}
	slog.Debug("TOKEN STORE", "message", "session cleared if current", "namespace", ts.namespace, "removed", removed)
	return removed, nil
}

func (ts *TokenStore) Namespace() string {
	return ts.namespace
}

type TokenStoreOption func(*TokenStore) error

func WithNamespace(namespace string) TokenStoreOption {
	return func(ts *TokenStore) error {
		ts.namespace = namespace
		return nil
	}
}

func WithSessionRepository(repo LimitedSessionRepository) TokenStoreOption {
	return func(ts *TokenStore) error {
		ts.sessionRepo = repo
		return nil
	}
}

// NewTokenStore creates the token store of one browser session
func NewTokenStore(options ...TokenStoreOption) (*TokenStore, error) {
	ts := TokenStore{}
	for _, opt := range options {
		err := opt(&ts)
		if err != nil {
			return &TokenStore{}, err
		}
	}
	if ts.namespace == "" {
		return &TokenStore{}, fmt.Errorf("token store namespace not set")
	}
	if ts.sessionRepo == nil {
		return &TokenStore{}, fmt.Errorf("session repository not initialized")
	}
	return &ts, nil
}
