package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/waqiti-dev/deeplink/pkg/dispatch"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "deeplink").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for routing duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: a new registry owned by the Metrics instance.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "deeplink",
		Buckets:   prometheus.DefBuckets,
	}
}

// Label values used when a result has no matched pattern.
const (
	patternNone = "none"
)

// Metrics is dispatch middleware that records Prometheus metrics for every
// routing call. It also implements dispatch.QueueObserver, so the pending
// queue depth is exported when the middleware is installed on a dispatcher.
//
// Metrics collected:
//   - deeplink_routes_total: counter of routing calls by pattern and outcome
//   - deeplink_route_duration_seconds: histogram of routing duration by pattern
//   - deeplink_route_failures_total: counter of failures by error category
//   - deeplink_replays_total: counter of queued links replayed
//   - deeplink_queue_depth: gauge of links waiting for a navigation host
//
// Example:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("waqiti"))
//	d := dispatch.New(provider, dispatch.WithMiddleware(m))
//	r.Handle("/metrics", promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{}))
type Metrics struct {
	gatherer prometheus.Gatherer

	routesTotal   *prometheus.CounterVec
	routeDuration *prometheus.HistogramVec
	routeFailures *prometheus.CounterVec
	replaysTotal  prometheus.Counter
	queueDepth    prometheus.Gauge
}

// NewMetrics creates the metrics middleware. Each instance registers its
// collectors on its own registry unless WithRegistry is given; registering
// two instances on the same registry panics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	m := &Metrics{}
	if config.Registry == nil {
		reg := prometheus.NewRegistry()
		config.Registry = reg
		m.gatherer = reg
	} else if g, ok := config.Registry.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	factory := promauto.With(config.Registry)

	m.routesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "routes_total",
		Help:        "Total number of links routed, by matched pattern and outcome",
		ConstLabels: config.ConstLabels,
	}, []string{"pattern", "outcome"})

	m.routeDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "route_duration_seconds",
		Help:        "Link routing duration in seconds",
		ConstLabels: config.ConstLabels,
		Buckets:     config.Buckets,
	}, []string{"pattern"})

	m.routeFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "route_failures_total",
		Help:        "Total number of failed routing calls by error category",
		ConstLabels: config.ConstLabels,
	}, []string{"category"})

	m.replaysTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "replays_total",
		Help:        "Total number of queued links replayed after the navigation host became ready",
		ConstLabels: config.ConstLabels,
	})

	m.queueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "queue_depth",
		Help:        "Number of links waiting for a navigation host",
		ConstLabels: config.ConstLabels,
	})

	return m
}

// Gatherer returns the registry the metrics are registered on, or nil when a
// Registerer that cannot gather was supplied.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// Handle implements dispatch.Middleware.
func (m *Metrics) Handle(ctx context.Context, req *dispatch.Request, next dispatch.Next) dispatch.Result {
	start := time.Now()
	res := next(ctx, req)
	duration := time.Since(start).Seconds()

	pattern := res.Pattern
	if pattern == "" {
		pattern = patternNone
	}

	m.routeDuration.WithLabelValues(pattern).Observe(duration)
	m.routesTotal.WithLabelValues(pattern, res.Outcome()).Inc()
	if !res.Success {
		m.routeFailures.WithLabelValues(string(res.Category())).Inc()
	}
	if req.Replay {
		m.replaysTotal.Inc()
	}
	return res
}

// ObserveQueueDepth implements dispatch.QueueObserver.
func (m *Metrics) ObserveQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

var (
	_ dispatch.Middleware    = (*Metrics)(nil)
	_ dispatch.QueueObserver = (*Metrics)(nil)
)
