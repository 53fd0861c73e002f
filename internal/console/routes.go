package console

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/sessions"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/userapi"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/utils"
	"github.com/labstack/echo/v4"
)

type sessionResponse struct {
	Authenticated        bool             `json:"authenticated"`
	Identity             *models.Identity `json:"identity,omitempty"`
	AccessTokenExpiresAt *time.Time       `json:"accessTokenExpiresAt,omitempty"`
}

type userResponse struct {
	models.User
	OwnAccount bool `json:"ownAccount"`
}

// bind decodes the JSON body and validates it
func (s *Server) bind(c echo.Context, body any) error {
	err := (&echo.DefaultBinder{}).BindBody(c, body)
	if err != nil {
		return &gwerrors.APIError{
			Kind:    gwerrors.ErrValidation,
			Status:  http.StatusBadRequest,
			Message: "the request body is not valid JSON",
		}
	}
	return s.validate(body)
}

// client returns the user API client of the browser session of the request
func client(c echo.Context) (*userapi.Client, error) {
	cl, err := sessions.GetClient(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gwerrors.ErrSessionNotFound, err)
	}
	return cl, nil
}

func (s *Server) PostLogin(c echo.Context) error {
	req := models.LoginRequest{}
	if err := s.bind(c, &req); err != nil {
		return writeError(c, err)
	}
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	identity, err := cl.Login(c.Request().Context(), req.UserID, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	slog.Info("CONSOLE", "message", "login", "userID", identity.UserID, "requestID", utils.GetRequestID(c))
	return c.JSON(http.StatusOK, identity)
}

func (s *Server) PostRegister(c echo.Context) error {
	req := models.RegisterRequest{}
	if err := s.bind(c, &req); err != nil {
		return writeError(c, err)
	}
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	err = cl.Register(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (s *Server) PostLogout(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	err = cl.Logout(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetSession reports whether the browser session is logged in. It never calls the user-account API.
func (s *Server) GetSession(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	res := sessionResponse{}
	identity, found := cl.CurrentIdentity(ctx)
	if !found {
		return c.JSON(http.StatusOK, res)
	}
	res.Authenticated = true
	res.Identity = &identity
	if expiresAt, ok := (models.Session{AccessToken: cl.AccessToken(ctx)}).AccessTokenExpiry(); ok {
		res.AccessTokenExpiresAt = &expiresAt
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) GetUsers(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	users, err := cl.ListUsers(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) PostUsers(c echo.Context) error {
	req := models.UserRequest{}
	if err := s.bind(c, &req); err != nil {
		return writeError(c, err)
	}
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	user, err := cl.CreateUser(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) GetUser(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	user, err := cl.GetUser(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, userResponse{User: user, OwnAccount: cl.IsOwnAccount(ctx, user.UserID)})
}

func (s *Server) PutUser(c echo.Context) error {
	update := models.UserUpdate{}
	if err := s.bind(c, &update); err != nil {
		return writeError(c, err)
	}
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	user, err := cl.UpdateUser(c.Request().Context(), c.Param("id"), update)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) DeleteUser(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	err = cl.DeleteUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) GetMe(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	me, err := cl.Me(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, userResponse{User: me, OwnAccount: true})
}

func (s *Server) PutMe(c echo.Context) error {
	update := models.UserUpdate{}
	if err := s.bind(c, &update); err != nil {
		return writeError(c, err)
	}
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	user, err := cl.UpdateMe(c.Request().Context(), update)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteMe deletes the account of the session user, which also ends the session
func (s *Server) DeleteMe(c echo.Context) error {
	cl, err := client(c)
	if err != nil {
		return writeError(c, err)
	}
	err = cl.DeleteMe(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) GetHealth(c echo.Context) error {
	err := s.health.Ping(c.Request().Context())
	if err != nil {
		slog.Error("CONSOLE", "message", "health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "the session storage is unreachable"})
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) GetVersion(c echo.Context) error {
	return c.String(http.StatusOK, s.version)
}
