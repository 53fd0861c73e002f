package tokenstore

import (
	"context"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/models"
)

// LimitedSessionRepository is the part of the persistence layer used by the token store.
// It is implemented by db.RedisAdapter.
type LimitedSessionRepository interface {
	GetSession(ctx context.Context, namespace string) (models.Session, error)
	SetSession(ctx context.Context, namespace string, session models.Session) error
	SetAccessToken(ctx context.Context, namespace string, refreshToken string, accessToken string) (bool, error)
	RemoveSession(ctx context.Context, namespace string) (bool, error)
	RemoveSessionIfCurrent(ctx context.Context, namespace string, refreshToken string) (bool, error)
}
