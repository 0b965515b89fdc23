package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmap/internal/config"
	"github.com/matzehuels/flowmap/internal/server"
	"github.com/matzehuels/flowmap/pkg/observability/prom"
)

// serveCommand starts the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		src     sourceFlags
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve [catalog]",
		Short: "Serve the catalog over an HTTP API with per-client sessions",
		Long: `Serve the catalog over an HTTP API with per-client sessions.

Each client gets its own session, tracked by a cookie, holding its node
positions, selection, click highlight and drawn connections. Sessions
expire after --session-ttl of inactivity. With --watch, edits to the
catalog file are picked up by new sessions.

Prometheus metrics are exposed on /metrics.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := src.options(cfg, args)
			if err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			prom.New(reg).Install()

			srv, err := server.New(ctx, server.Config{
				Addr:          cfg.Server.Addr,
				SessionSecret: cfg.Server.SessionSecret,
				SessionTTL:    cfg.Server.SessionTTL,
				Watch:         cfg.Server.Watch,
				SecureCookies: cfg.Server.SecureCookies,
				Options:       opts,
				Runner:        runner,
				Logger:        c.Logger,
				Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			})
			if err != nil {
				return err
			}
			return srv.Serve(ctx)
		},
	}

	src.register(cmd.Flags())
	registerLayoutFlags(cmd.Flags())
	registerCacheFlags(cmd.Flags(), &noCache)
	cmd.Flags().Bool("filter", false, "feed selections hide every other feed")
	cmd.Flags().String("addr", config.DefaultAddr, "listen address")
	cmd.Flags().Duration("session-ttl", config.DefaultSessionTTL, "idle time before a session expires")
	cmd.Flags().Bool("watch", false, "reload the catalog file when it changes")
	cmd.Flags().Bool("secure-cookies", false, "mark the session cookie Secure (HTTPS only)")

	return cmd
}
