// Package dispatcher sends authorized requests to the user-account API and recovers from
// expired access tokens.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/metrics"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/upstream"
)

type TokenReader interface {
	AccessToken(ctx context.Context) string
}

type Transport interface {
	Do(ctx context.Context, req upstream.Request, accessToken string) (upstream.Response, error)
}

type Refresher interface {
	Refresh(ctx context.Context, staleToken string) (string, error)
	Expire(ctx context.Context, rejectedToken string) error
}

type DispatchMetrics interface {
	RequestDispatched(outcome string)
}

type Dispatcher struct {
	tokenStore TokenReader
	transport  Transport
	refresher  Refresher
	metrics    DispatchMetrics
}

// Dispatch sends the request with the current access token. A 401 triggers one token refresh
// and a single replay of the request. Every non-2xx answer is returned as a *gwerrors.APIError.
func (d *Dispatcher) Dispatch(ctx context.Context, req upstream.Request) (upstream.Response, error) {
	accessToken := d.tokenStore.AccessToken(ctx)
	res, err := d.transport.Do(ctx, req, accessToken)
	if err != nil {
		d.record(metrics.OutcomeFailed)
		return upstream.Response{}, err
	}
	if res.StatusCode != http.StatusUnauthorized {
		return d.classify(res, metrics.OutcomeSuccess)
	}

	slog.Debug("DISPATCHER", "message", "the access token was rejected, refreshing", "request", req.String())
	newToken, err := d.refresher.Refresh(ctx, accessToken)
	if err != nil {
		if errors.Is(err, gwerrors.ErrUnauthenticated) {
			d.record(metrics.OutcomeUnauthenticated)
		} else {
			d.record(metrics.OutcomeFailed)
		}
		return upstream.Response{}, err
	}
	res, err = d.transport.Do(ctx, req, newToken)
	if err != nil {
		d.record(metrics.OutcomeFailed)
		return upstream.Response{}, err
	}
	if res.StatusCode == http.StatusUnauthorized {
		slog.Info("DISPATCHER", "message", "the refreshed access token was rejected", "request", req.String())
		d.record(metrics.OutcomeUnauthenticated)
		err := d.refresher.Expire(ctx, newToken)
		return upstream.Response{}, fmt.Errorf("%w: %w", err, gwerrors.Classify(res.StatusCode, res.Body))
	}
	return d.classify(res, metrics.OutcomeReplayed)
}

func (d *Dispatcher) classify(res upstream.Response, outcome string) (upstream.Response, error) {
	err := gwerrors.Classify(res.StatusCode, res.Body)
	if err != nil {
		d.record(metrics.OutcomeFailed)
		return res, err
	}
	d.record(outcome)
	return res, nil
}

func (d *Dispatcher) record(outcome string) {
	if d.metrics != nil {
		d.metrics.RequestDispatched(outcome)
	}
}

type DispatcherOption func(*Dispatcher) error

func WithTokenStore(tokenStore TokenReader) DispatcherOption {
	return func(d *Dispatcher) error {
		d.tokenStore = tokenStore
		return nil
	}
}

func WithTransport(transport Transport) DispatcherOption {
	return func(d *Dispatcher) error {
		d.transport = transport
		return nil
	}
}

func WithRefresher(refresher Refresher) DispatcherOption {
	return func(d *Dispatcher) error {
		d.refresher = refresher
		return nil
	}
}

func WithMetrics(m DispatchMetrics) DispatcherOption {
	return func(d *Dispatcher) error {
		d.metrics = m
		return nil
	}
}

func NewDispatcher(options ...DispatcherOption) (*Dispatcher, error) {
	d := Dispatcher{}
	for _, opt := range options {
		err := opt(&d)
		if err != nil {
			return &Dispatcher{}, err
		}
	}
	if d.tokenStore == nil {
		return &Dispatcher{}, fmt.Errorf("token store not initialized")
	}
	if d.transport == nil {
		return &Dispatcher{}, fmt.Errorf("transport not initialized")
	}
	if d.refresher == nil {
		return &Dispatcher{}, fmt.Errorf("refresher not initialized")
	}
	return &d, nil
}
