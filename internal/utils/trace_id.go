package utils

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
)

// GetTraceID returns the trace ID of the sentry transaction of the request, if any
func GetTraceID(c echo.Context) string {
	return GetTraceIDFromHTTPRequest(c.Request())
}

// GetTraceIDFromHTTPRequest extracts the trace ID from an http.Request.
func GetTraceIDFromHTTPRequest(r *http.Request) string {
	if span := sentry.TransactionFromContext(r.Context()); span != nil {
		return span.TraceID.String()
	}
	return ""
}
