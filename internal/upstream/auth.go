package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/models"
)

// AuthAPI wraps the endpoints of the user-account API that do not need an access token
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

// Login exchanges credentials for a token pair. A 401 is reported as gwerrors.ErrInvalidCredentials
// so that it is not mistaken for an expired session.
func (a *AuthAPI) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	res, err := a.client.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/login", Body: req}, "")
	if err != nil {
		return models.LoginResponse{}, err
	}
	err = gwerrors.Classify(res.StatusCode, res.Body)
	if err != nil {
		if apiErr, ok := gwerrors.AsAPIError(err); ok && errors.Is(err, gwerrors.ErrUnauthenticated) {
			apiErr.Kind = gwerrors.ErrInvalidCredentials
		}
		return models.LoginResponse{}, err
	}
	output := models.LoginResponse{}
	err = res.Decode(&output)
	if err != nil {
		return models.LoginResponse{}, err
	}
	if !output.Session().Complete() {
		return models.LoginResponse{}, fmt.Errorf("%w: the login response is missing tokens", gwerrors.ErrUnexpectedStatus)
	}
	return output, nil
}

func (a *AuthAPI) Register(ctx context.Context, req models.RegisterRequest) error {
	res, err := a.client.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/register", Body: req}, "")
	if err != nil {
		return err
	}
	return gwerrors.Classify(res.StatusCode, res.Body)
}

// Refresh exchanges the refresh token for a new access token. It is a POST, so the client
// makes a single attempt whatever the retry settings.
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", gwerrors.ErrNoRefreshToken
	}
	res, err := a.client.Do(
		ctx,
		Request{Method: http.MethodPost, Path: "/auth/refresh", Body: models.RefreshTokenRequest{RefreshToken: refreshToken}},
		"",
	)
	if err != nil {
		return "", err
	}
	err = gwerrors.Classify(res.StatusCode, res.Body)
	if err != nil {
		return "", err
	}
	output := models.RefreshTokenResponse{}
	err = res.Decode(&output)
	if err != nil {
		return "", err
	}
	if output.AccessToken == "" {
		return "", fmt.Errorf("%w: the refresh response is missing the access token", gwerrors.ErrUnexpectedStatus)
	}
	return output.AccessToken, nil
}
