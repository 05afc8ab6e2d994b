package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waqiti-dev/deeplink"
	"github.com/waqiti-dev/deeplink/pkg/auth"
)

// Server is the HTTP/WebSocket surface of a deep-link Manager.
type Server struct {
	manager *deeplink.Manager
	config  *Config

	router         chi.Router
	upgrader       websocket.Upgrader
	trustedProxies *proxyMatcher

	verifier *auth.JWTVerifier
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	// hostMu serializes host attach and detach so the manager never sees a
	// stale host after a newer one connected.
	hostMu sync.Mutex
	host   *wsHost

	mu         sync.Mutex
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithVerifier enables bearer-token identity. Requests with a valid token
// are routed as the token's principal; all others are anonymous.
func WithVerifier(v *auth.JWTVerifier) Option {
	return func(s *Server) {
		s.verifier = v
	}
}

// WithGatherer exposes g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// New creates a Server for m. A nil config uses DefaultConfig.
func New(m *deeplink.Manager, config *Config, opts ...Option) *Server {
	config = config.withDefaults()

	s := &Server{
		manager: m,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	s.trustedProxies = newProxyMatcher(config.TrustedProxies, s.logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(auth.Middleware(s.verifier, s.logger))

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/links/route", s.handleRoute)
		r.Post("/links/resume", s.handleResume)
		r.Post("/links/generate", s.handleGenerate)
		r.Get("/links/test", s.handleTest)
		r.Get("/routes", s.handleRoutes)
	})
	r.Get(s.config.HostPath, s.handleHost)
	return r
}

// logRequests logs one line per request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"client_ip", s.clientIP(r),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Config returns the server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// HostConnected reports whether a navigation host is attached.
func (s *Server) HostConnected() bool {
	s.hostMu.Lock()
	defer s.hostMu.Unlock()
	return s.host != nil
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address, "host_path", s.config.HostPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown disconnects the navigation host and gracefully shuts down the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.hostMu.Lock()
	h := s.host
	s.hostMu.Unlock()
	if h != nil {
		h.close(websocket.CloseGoingAway, "server shutting down")
	}

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
