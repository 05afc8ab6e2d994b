package main

import (
	"context"
	stderrors "errors"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/waqiti-dev/deeplink"
	"github.com/waqiti-dev/deeplink/internal/config"
	"github.com/waqiti-dev/deeplink/internal/errors"
	"github.com/waqiti-dev/deeplink/internal/telemetry"
	"github.com/waqiti-dev/deeplink/pkg/analytics"
	"github.com/waqiti-dev/deeplink/pkg/auth"
	"github.com/waqiti-dev/deeplink/pkg/dispatch"
	"github.com/waqiti-dev/deeplink/pkg/legacy"
	"github.com/waqiti-dev/deeplink/pkg/middleware"
	"github.com/waqiti-dev/deeplink/pkg/records"
	"github.com/waqiti-dev/deeplink/pkg/routes"
	"github.com/waqiti-dev/deeplink/pkg/session"
)

// app is the assembled routing stack.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	manager  *deeplink.Manager
	metrics  *middleware.Metrics
	verifier *auth.JWTVerifier
	closers  []func(context.Context) error
}

// appOptions selects what buildApp wires.
type appOptions struct {
	// provider answers identity questions for the dispatcher.
	provider auth.Provider

	// offline skips the configured store, record source and tracing. Used by
	// commands that only match or generate links.
	offline bool
}

// buildApp wires the configured store, record directory, telemetry and
// middleware into a Manager.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	provider := opts.provider
	if provider == nil {
		provider = auth.ContextProvider{}
	}

	var (
		store session.Store
		dir   records.Directory
	)
	if opts.offline {
		mem := session.NewMemoryStore()
		a.closers = append(a.closers, func(context.Context) error { return mem.Close() })
		store = mem
		dir = records.NewMemoryDirectory(records.Seed{})
	} else {
		if store, err = a.openStore(ctx); err != nil {
			return nil, err
		}
		if dir, err = openRecords(ctx, cfg.Records); err != nil {
			return nil, err
		}
	}

	mws := []dispatch.Middleware{}
	if cfg.Metrics.Enabled {
		a.metrics = middleware.NewMetrics(middleware.WithNamespace(cfg.Metrics.Namespace))
		mws = append(mws, a.metrics)
	}
	if cfg.Tracing.Enabled && !opts.offline {
		tp, shutdown, err := telemetry.Setup(ctx, telemetry.Config{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Enabled:     true,
		})
		if err != nil {
			return nil, errors.New(errors.ConfigInvalidValue).
				WithDetail("tracing.endpoint: the OTLP exporter could not be created").
				Wrap(err)
		}
		a.closers = append(a.closers, shutdown)

		otelOpts := []middleware.OTelOption{middleware.WithTracerProvider(tp)}
		if cfg.Tracing.TracerName != "" {
			otelOpts = append(otelOpts, middleware.WithTracerName(cfg.Tracing.TracerName))
		}
		mws = append(mws, middleware.OpenTelemetry(otelOpts...))
	}
	mws = append(mws, middleware.Logging(logger))

	tracker := analytics.NewLogTracker(logger)

	d := dispatch.New(provider,
		dispatch.WithLogger(logger),
		dispatch.WithTracker(tracker),
		dispatch.WithStore(store),
		dispatch.WithTimeout(cfg.Routing.Timeout.Std()),
		dispatch.WithMiddleware(mws...),
		dispatch.WithFallbackDestination(cfg.Links.DefaultDestination),
		dispatch.WithAuthDestination(cfg.Links.AuthDestination),
	)
	if err := routes.Register(d, dir); err != nil {
		return nil, errors.New(errors.RouteInvalidPattern).Wrap(err)
	}
	for _, s := range d.Shadowed() {
		logger.Warn("unreachable route", "pattern", s.Pattern, "shadowed_by", s.ShadowedBy)
	}

	lh := legacy.New(provider,
		legacy.WithLogger(logger),
		legacy.WithAuthDestination(cfg.Links.AuthDestination),
	)

	policy := deeplink.PreferRouter
	if !cfg.Routing.PreferNewRouter {
		policy = deeplink.PreferLegacy
	}
	a.manager = deeplink.New(deeplink.Config{
		Links: deeplink.LinksConfig{
			Scheme:        cfg.Links.Scheme,
			UniversalBase: cfg.Links.UniversalBase,
		},
		Routing: deeplink.RoutingConfig{
			Policy:        policy,
			LegacyEnabled: cfg.Routing.LegacyEnabled,
		},
		Logger:  logger,
		Tracker: tracker,
	}, d, lh)

	if cfg.Auth.JWTSecret != "" {
		a.verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret), auth.WithIssuer(cfg.Auth.Issuer))
	}

	return a, nil
}

// openStore opens the configured pending-link store.
func (a *app) openStore(ctx context.Context) (session.Store, error) {
	ttl := a.cfg.Store.TTL.Std()

	switch a.cfg.Store.Driver {
	case config.StoreSQLite:
		st, err := session.OpenSQLite(ctx, a.cfg.Store.Path,
			session.WithSQLTTL(ttl), session.WithSQLLogger(a.logger))
		if err != nil {
			return nil, errors.New(errors.CLIStoreUnavailable).
				WithSuggestion("Check that " + a.cfg.Store.Path + " is writable").
				Wrap(err)
		}
		a.closers = append(a.closers, func(context.Context) error { return st.Close() })
		return st, nil
	default:
		st := session.NewMemoryStore(session.WithTTL(ttl))
		a.closers = append(a.closers, func(context.Context) error { return st.Close() })
		return st, nil
	}
}

// openRecords opens the configured domain record directory.
func openRecords(ctx context.Context, cfg config.RecordsConfig) (records.Directory, error) {
	switch cfg.Source {
	case config.RecordsS3:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.New(errors.CLIRecordsUnavailable).
				WithSuggestion("Check the AWS credentials and region").
				Wrap(err)
		}
		return records.NewS3Directory(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
	default:
		if cfg.SeedFile == "" {
			return records.NewMemoryDirectory(records.Seed{}), nil
		}
		seed, err := records.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return nil, errors.New(errors.ConfigSeedInvalid).
				WithDetail("Could not load " + cfg.SeedFile).
				Wrap(err)
		}
		return records.NewMemoryDirectory(seed), nil
	}
}

// Close releases the store and flushes telemetry, most recent first.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stderrors.Join(errs...)
}
