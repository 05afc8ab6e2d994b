// Package middleware provides observability middleware for the link
// dispatcher.
//
// This package includes:
//   - OpenTelemetry tracing middleware
//   - Prometheus metrics middleware
//   - Structured logging middleware
//
// Every middleware wraps dispatch.Dispatcher.Route calls, replays of queued
// links included.
//
// # OpenTelemetry Middleware
//
// One span is started per routing call, carrying source, pattern, outcome and
// destination. Failures set an Error status with the error code.
//
//	d := dispatch.New(provider, dispatch.WithMiddleware(
//	    middleware.OpenTelemetry(),
//	))
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("waqiti-links"),
//	    middleware.WithRequestFilter(func(req *dispatch.Request) bool {
//	        return !req.Replay
//	    }),
//	)
//
// # Prometheus Metrics
//
// Metrics are registered on a registry owned by the Metrics value, so several
// dispatchers in one process do not collide:
//   - deeplink_routes_total: links routed by pattern and outcome
//   - deeplink_route_duration_seconds: routing duration histogram
//   - deeplink_route_failures_total: failures by error category
//   - deeplink_replays_total: queued links replayed
//   - deeplink_queue_depth: links waiting for a navigation host
//
//	m := middleware.NewMetrics()
//	d := dispatch.New(provider, dispatch.WithMiddleware(m))
//	r.Handle("/metrics", promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{}))
//
// # Context Propagation
//
// The tracing middleware passes the span context down the chain, so handlers
// and the collaborators they call inherit the trace through ctx.
package middleware
