package console

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/utils"
	"github.com/labstack/echo/v4"
)

// LoginRedirect is where the UI sends the user once the session has ended
const LoginRedirect string = "/login"

type errorResponse struct {
	Error    string                `json:"error"`
	Redirect string                `json:"redirect,omitempty"`
	Fields   *gwerrors.FieldErrors `json:"fields,omitempty"`
}

// statusFor maps the error kinds of the dispatcher to the status returned to the browser
func statusFor(err error) int {
	switch {
	case errors.Is(err, gwerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, gwerrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, gwerrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, gwerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gwerrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, gwerrors.ErrServerFault):
		return http.StatusBadGateway
	case errors.Is(err, gwerrors.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(err error) (int, errorResponse) {
	status := statusFor(err)
	res := errorResponse{Error: http.StatusText(status)}
	apiErr, isAPIErr := gwerrors.AsAPIError(err)
	expired := errors.Is(err, gwerrors.ErrUnauthenticated) && !errors.Is(err, gwerrors.ErrInvalidCredentials)
	switch {
	case expired:
		res.Error = gwerrors.ErrUnauthenticated.Error()
		res.Redirect = LoginRedirect
	case isAPIErr && apiErr.Message != "":
		res.Error = apiErr.Message
	case status != http.StatusInternalServerError:
		res.Error = kindMessage(err)
	}
	if isAPIErr && apiErr.Fields.Len() > 0 {
		res.Fields = &apiErr.Fields
	}
	return status, res
}

func kindMessage(err error) string {
	for _, kind := range []error{
		gwerrors.ErrInvalidCredentials,
		gwerrors.ErrForbidden,
		gwerrors.ErrNotFound,
		gwerrors.ErrValidation,
		gwerrors.ErrServerFault,
		gwerrors.ErrTransport,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return err.Error()
}

// writeError renders err as JSON, only failures on our side are logged as errors
func writeError(c echo.Context, err error) error {
	status, res := newErrorResponse(err)
	if status >= http.StatusInternalServerError {
		slog.Error(
			"CONSOLE",
			"message",
			"request failed",
			"error",
			err,
			"status",
			status,
			"requestID",
			utils.GetRequestID(c),
			"traceID",
			utils.GetTraceID(c),
		)
	} else {
		slog.Debug("CONSOLE", "message", "request rejected", "error", err, "status", status, "requestID", utils.GetRequestID(c))
	}
	return c.JSON(status, res)
}
