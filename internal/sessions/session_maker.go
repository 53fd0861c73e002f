package sessions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/dispatcher"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/tokenrefresher"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/tokenstore"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/userapi"
)

var randomIDGenerator models.IDGenerator = models.RandomGenerator{Length: 24}

func newSessionID() (string, error) {
	return randomIDGenerator.ID()
}

// AuthEndpoints is the part of the auth API shared by every browser session
type AuthEndpoints interface {
	userapi.AuthAPI
	tokenrefresher.RefreshEndpoint
}

// Metrics collects the counters of all the per-session components
type Metrics interface {
	userapi.SessionMetrics
	tokenrefresher.RefreshMetrics
	dispatcher.DispatchMetrics
}

// ClientMaker assembles the token store, the refresh coordinator and the dispatcher
// of a single browser session.
type ClientMaker interface {
	NewClient(sessionID string) (*userapi.Client, error)
}

type ClientMakerImpl struct {
	sessionRepo tokenstore.LimitedSessionRepository
	transport   dispatcher.Transport
	authAPI     AuthEndpoints
	metrics     Metrics
}

func (cm *ClientMakerImpl) NewClient(sessionID string) (*userapi.Client, error) {
	tokenStore, err := tokenstore.NewTokenStore(
		tokenstore.WithNamespace(sessionID),
		tokenstore.WithSessionRepository(cm.sessionRepo),
	)
	if err != nil {
		return nil, err
	}
	coordinatorOptions := []tokenrefresher.CoordinatorOption{
		tokenrefresher.WithTokenStore(tokenStore),
		tokenrefresher.WithRefreshEndpoint(cm.authAPI),
		tokenrefresher.WithSessionExpiredHandler(func(ctx context.Context) {
			slog.Info("SESSIONS", "message", "session expired, the user has to log in again", "sessionID", sessionID)
		}),
	}
	dispatcherOptions := []dispatcher.DispatcherOption{
		dispatcher.WithTokenStore(tokenStore),
		dispatcher.WithTransport(cm.transport),
	}
	clientOptions := []userapi.ClientOption{
		userapi.WithTokenStore(tokenStore),
		userapi.WithAuthAPI(cm.authAPI),
	}
	if cm.metrics != nil {
		coordinatorOptions = append(coordinatorOptions, tokenrefresher.WithMetrics(cm.metrics))
		dispatcherOptions = append(dispatcherOptions, dispatcher.WithMetrics(cm.metrics))
		clientOptions = append(clientOptions, userapi.WithMetrics(cm.metrics))
	}
	coordinator, err := tokenrefresher.NewCoordinator(coordinatorOptions...)
	if err != nil {
		return nil, err
	}
	d, err := dispatcher.NewDispatcher(append(dispatcherOptions, dispatcher.WithRefresher(coordinator))...)
	if err != nil {
		return nil, err
	}
	return userapi.NewClient(append(clientOptions, userapi.WithDispatcher(d))...)
}

type ClientMakerOption func(*ClientMakerImpl) error

func WithSessionRepository(repo tokenstore.LimitedSessionRepository) ClientMakerOption {
	return func(cm *ClientMakerImpl) error {
		cm.sessionRepo = repo
		return nil
	}
}

func WithTransport(transport dispatcher.Transport) ClientMakerOption {
	return func(cm *ClientMakerImpl) error {
		cm.transport = transport
		return nil
	}
}

func WithAuthEndpoints(authAPI AuthEndpoints) ClientMakerOption {
	return func(cm *ClientMakerImpl) error {
		cm.authAPI = authAPI
		return nil
	}
}

func WithMetrics(m Metrics) ClientMakerOption {
	return func(cm *ClientMakerImpl) error {
		cm.metrics = m
		return nil
	}
}

func NewClientMaker(options ...ClientMakerOption) (ClientMaker, error) {
	cm := ClientMakerImpl{}
	for _, opt := range options {
		err := opt(&cm)
		if err != nil {
			return nil, err
		}
	}
	if cm.sessionRepo == nil {
		return nil, fmt.Errorf("session repository not initialized")
	}
	if cm.transport == nil {
		return nil, fmt.Errorf("transport not initialized")
	}
	if cm.authAPI == nil {
		return nil, fmt.Errorf("auth endpoints not initialized")
	}
	return &cm, nil
}
