package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/waqiti-dev/deeplink/internal/errors"
	"github.com/waqiti-dev/deeplink/pkg/auth"
	"github.com/waqiti-dev/deeplink/pkg/server"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the routing server",
		Long: `Start the HTTP server.

Links are posted to /v1/links/route. A client connected to the
websocket host endpoint receives navigate frames; until one connects,
routed links are queued and replayed when it does.

Examples:
  deeplink serve
  deeplink serve --addr=:9090
  DEEPLINK_STORE_DRIVER=sqlite deeplink serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from deeplink.json)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *rootOptions, addr string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := opts.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger, appOptions{provider: auth.ContextProvider{}})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.Server.Addr
	srvCfg.HostPath = cfg.Server.HostPath
	srvCfg.TrustedProxies = cfg.Server.TrustedProxies

	srvOpts := []server.Option{server.WithLogger(logger)}
	if a.metrics != nil {
		srvOpts = append(srvOpts, server.WithGatherer(a.metrics.Gatherer()))
	}
	if a.verifier != nil {
		srvOpts = append(srvOpts, server.WithVerifier(a.verifier))
	} else {
		logger.Warn("auth.jwtSecret is empty; every request is anonymous")
	}
	srv := server.New(a.manager, srvCfg, srvOpts...)

	out := cmd.OutOrStdout()
	success(out, "Listening on %s", cfg.Server.Addr)
	info(out, "Navigation host: ws://<host>%s", cfg.Server.HostPath)
	if cfg.Path() != "" {
		info(out, "Config: %s", cfg.Path())
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		return errors.New(errors.CLIServerFailed).Wrap(err)
	}
	return nil
}
