// Package console serves the JSON API used by the browser UI of the user administration console.
package console

import (
	"context"
	"fmt"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/sessions"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// HealthChecker is implemented by the session storage
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	sessions  *sessions.Registry
	health    HealthChecker
	version   string
	validator *validator.Validate
}

func (s *Server) RegisterHandlers(server *echo.Echo, commonMiddlewares ...echo.MiddlewareFunc) {
	server.GET("/health", s.GetHealth)
	server.GET("/version", s.GetVersion)

	e := server.Group("/api")
	e.Use(commonMiddlewares...)
	e.Use(NoCaching, s.sessions.Middleware())
	e.POST("/auth/login", s.PostLogin)
	e.POST("/auth/register", s.PostRegister)
	e.POST("/auth/logout", s.PostLogout)
	e.GET("/session", s.GetSession)
	e.GET("/users", s.GetUsers)
	e.POST("/users", s.PostUsers)
	e.GET("/users/:id", s.GetUser)
	e.PUT("/users/:id", s.PutUser)
	e.DELETE("/users/:id", s.DeleteUser)
	e.GET("/me", s.GetMe)
	e.PUT("/me", s.PutMe)
	e.DELETE("/me", s.DeleteMe)
}

type ServerOption func(*Server) error

func WithSessions(registry *sessions.Registry) ServerOption {
	return func(s *Server) error {
		s.sessions = registry
		return nil
	}
}

func WithHealthChecker(health HealthChecker) ServerOption {
	return func(s *Server) error {
		s.health = health
		return nil
	}
}

func WithVersion(version string) ServerOption {
	return func(s *Server) error {
		s.version = version
		return nil
	}
}

// NewServer creates the console server, the browser session middleware is applied to all
// the routes under /api.
func NewServer(options ...ServerOption) (*Server, error) {
	v, err := newValidator(patternRules...)
	if err != nil {
		return &Server{}, err
	}
	server := Server{validator: v}
	for _, opt := range options {
		err := opt(&server)
		if err != nil {
			return &Server{}, err
		}
	}
	if server.sessions == nil {
		return &Server{}, fmt.Errorf("session registry not initialized")
	}
	if server.health == nil {
		return &Server{}, fmt.Errorf("health checker not initialized")
	}
	return &server, nil
}
