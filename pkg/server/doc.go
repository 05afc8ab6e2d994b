// Package server exposes a deep-link Manager over HTTP and WebSocket.
//
// # Endpoints
//
//	POST /v1/links/route     route a link; the body is {url, source, campaign, referrer, device}
//	POST /v1/links/resume    route the link remembered before sign-in
//	POST /v1/links/generate  build a link from {pattern, params, source, campaign, utm, universal}
//	GET  /v1/links/test      match ?url= without navigating
//	GET  /v1/routes          list route definitions in registration order
//	GET  /v1/host            WebSocket navigation host
//	GET  /metrics            Prometheus metrics, when a gatherer is configured
//	GET  /healthz            liveness and host readiness
//
// Routing failures are not HTTP errors: /v1/links/route answers 200 with a
// Result whose errorCode says what went wrong.
//
// # Navigation Host
//
// The app connects to /v1/host and exchanges JSON frames. Links routed before
// the app sends {"type":"ready"} are queued; the ready frame replays them as
// navigate frames, in order, and is acknowledged with
// {"type":"ready","replayed":N}. Disconnecting marks the host not ready
// again. Only one host is attached at a time; a newer host replaces the older
// one.
//
// An "Authorization: Bearer" token is verified on every request, the
// WebSocket upgrade included, when a verifier is configured.
package server
