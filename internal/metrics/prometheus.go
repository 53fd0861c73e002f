package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace string = "useradmin_gateway"

// Outcome labels of a dispatched request
const (
	OutcomeSuccess         string = "success"
	OutcomeReplayed        string = "replayed"
	OutcomeUnauthenticated string = "unauthenticated"
	OutcomeFailed          string = "failed"
)

// PrometheusMetricsClient counts the session and token events of the gateway
type PrometheusMetricsClient struct {
	logins          prometheus.Counter
	logouts         prometheus.Counter
	refreshCycles   *prometheus.CounterVec
	sessionExpiries prometheus.Counter
	dispatches      *prometheus.CounterVec
}

func (p *PrometheusMetricsClient) UserLoggedIn() {
	p.logins.Inc()
}

func (p *PrometheusMetricsClient) UserLoggedOut() {
	p.logouts.Inc()
}

// RefreshCompleted counts one refresh cycle, i.e. one call to the refresh endpoint
func (p *PrometheusMetricsClient) RefreshCompleted(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	p.refreshCycles.WithLabelValues(result).Inc()
}

func (p *PrometheusMetricsClient) SessionExpired() {
	p.sessionExpiries.Inc()
}

func (p *PrometheusMetricsClient) RequestDispatched(outcome string) {
	p.dispatches.WithLabelValues(outcome).Inc()
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) (C, error) {
	err := registerer.Register(collector)
	if err == nil {
		return collector, nil
	}
	alreadyRegistered := prometheus.AlreadyRegisteredError{}
	if errors.As(err, &alreadyRegistered) {
		existing, ok := alreadyRegistered.ExistingCollector.(C)
		if ok {
			return existing, nil
		}
	}
	return collector, err
}

// NewPrometheusClient registers the counters, reusing them when they are registered already
func NewPrometheusClient(registerer prometheus.Registerer) (*PrometheusMetricsClient, error) {
	var err error
	p := PrometheusMetricsClient{}
	p.logins, err = register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Number of successful logins.",
	}))
	if err != nil {
		return &PrometheusMetricsClient{}, err
	}
	p.logouts, err = register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logouts_total",
		Help:      "Number of logouts.",
	}))
	if err != nil {
		return &PrometheusMetricsClient{}, err
	}
	p.refreshCycles, err = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_cycles_total",
		Help:      "Number of calls to the refresh endpoint by result.",
	}, []string{"result"}))
	if err != nil {
		return &PrometheusMetricsClient{}, err
	}
	p.sessionExpiries, err = register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_expiries_total",
		Help:      "Number of sessions ended because the tokens could not be refreshed.",
	}))
	if err != nil {
		return &PrometheusMetricsClient{}, err
	}
	p.dispatches, err = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatched_requests_total",
		Help:      "Number of requests sent to the user-account API by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return &PrometheusMetricsClient{}, err
	}
	return &p, nil
}
