package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/config"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/models"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const maxResponseBytes int64 = 10 << 20

const requestIDHeader string = "X-Request-ID"

// Client performs single HTTP exchanges with the user-account API. Any HTTP status is a
// valid response, only failures to get a response at all are returned as errors.
// Requests with an idempotent method are retried on connection errors, the others (login,
// refresh, register, logout and user creation) get exactly one attempt.
type Client struct {
	baseURL             *url.URL
	timeout             time.Duration
	retryMax            int
	limiter             *rate.Limiter
	requestIDs          models.IDGenerator
	retryingClient      *http.Client
	singleAttemptClient *http.Client
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Do sends the request, with a bearer token when accessToken is not empty
func (c *Client) Do(ctx context.Context, req Request, accessToken string) (Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if accessToken != "" {
		token := oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
		token.SetAuthHeader(httpReq)
	}
	requestID, err := c.requestIDs.ID()
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set(requestIDHeader, requestID)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("%w: rate limit: %w", gwerrors.ErrTransport, err)
		}
	}
	httpClient := c.singleAttemptClient
	if idempotent(req.Method) {
		httpClient = c.retryingClient
	}
	start := time.Now()
	res, err := httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		slog.Warn(
			"UPSTREAM",
			"message",
			"request failed without a response",
			"request",
			req.String(),
			"requestID",
			requestID,
			"error",
			err,
		)
		return Response{}, fmt.Errorf("%w: %w", gwerrors.ErrTransport, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: cannot read the response body: %w", gwerrors.ErrTransport, err)
	}
	slog.Debug(
		"UPSTREAM",
		"message",
		"request completed",
		"request",
		req.String(),
		"requestID",
		requestID,
		"status",
		res.StatusCode,
		"authenticated",
		accessToken != "",
		"duration",
		time.Since(start),
	)
	return Response{StatusCode: res.StatusCode, Header: res.Header, Body: body}, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("cannot encode the request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// connectionErrorsOnly never retries on an HTTP status, a response from the API is final
func connectionErrorsOnly(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

type ClientOption func(*Client) error

func WithBaseURL(baseURL *url.URL) ClientOption {
	return func(c *Client) error {
		if baseURL == nil {
			return fmt.Errorf("the base URL cannot be nil")
		}
		c.baseURL = baseURL
		return nil
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		c.timeout = timeout
		return nil
	}
}

// WithRetryMax enables retries of idempotent requests that did not get any response
func WithRetryMax(retryMax int) ClientOption {
	return func(c *Client) error {
		if retryMax < 0 {
			return fmt.Errorf("retry max cannot be negative")
		}
		c.retryMax = retryMax
		return nil
	}
}

func WithRateLimits(limits config.RateLimits) ClientOption {
	return func(c *Client) error {
		if !limits.Enabled {
			c.limiter = nil
			return nil
		}
		c.limiter = rate.NewLimiter(rate.Limit(limits.Rate), limits.Burst)
		return nil
	}
}

func WithRequestIDGenerator(generator models.IDGenerator) ClientOption {
	return func(c *Client) error {
		c.requestIDs = generator
		return nil
	}
}

func WithConfig(upstreamConfig config.UpstreamConfig) ClientOption {
	return func(c *Client) error {
		for _, opt := range []ClientOption{
			WithBaseURL(upstreamConfig.BaseURL),
			WithTimeout(upstreamConfig.Timeout),
			WithRetryMax(upstreamConfig.RetryMax),
			WithRateLimits(upstreamConfig.RateLimits),
		} {
			if err := opt(c); err != nil {
				return err
			}
		}
		return nil
	}
}

func NewClient(options ...ClientOption) (*Client, error) {
	c := Client{requestIDs: models.ULIDGenerator{}}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Client{}, err
		}
	}
	if c.baseURL == nil {
		return &Client{}, fmt.Errorf("the base URL of the user-account API is not set")
	}
	c.retryingClient = c.newHTTPClient(c.retryMax)
	c.singleAttemptClient = c.newHTTPClient(0)
	return &c, nil
}

func (c *Client) newHTTPClient(retryMax int) *http.Client {
	retryingClient := retryablehttp.NewClient()
	retryingClient.RetryMax = retryMax
	retryingClient.RetryWaitMin = time.Millisecond * 200
	retryingClient.RetryWaitMax = time.Second * 2
	retryingClient.CheckRetry = connectionErrorsOnly
	retryingClient.Logger = slog.Default()
	retryingClient.HTTPClient.Timeout = c.timeout
	return retryingClient.StandardClient()
}
