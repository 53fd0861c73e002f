package tokenrefresher

import (
	"context"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/models"
)

// RefresherTokenStore is the part of the token store used by the coordinator
type RefresherTokenStore interface {
	Read(ctx context.Context) (models.Session, bool)
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
	UpdateAccessToken(ctx context.Context, refreshToken string, accessToken string) (bool, error)
	ClearIfCurrent(ctx context.Context, refreshToken string) (bool, error)
}

// RefreshEndpoint exchanges a refresh token for a new access token
type RefreshEndpoint interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type RefreshMetrics interface {
	RefreshCompleted(err error)
	SessionExpired()
}
