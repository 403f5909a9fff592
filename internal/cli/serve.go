package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/crisprtower/internal/server"
	"github.com/matzehuels/crisprtower/pkg/observability"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		dataDir string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts over HTTP",
		Long: `Serve layouts over HTTP.

Every sub-directory of the data directory holding a tree file is a dataset.
Scenes and rendered artifacts are served from the same cache the CLI uses:

  GET /api/v1/datasets
  GET /api/v1/datasets/{name}
  GET /api/v1/datasets/{name}/scene?switch=Inner1&scale=extend&collapse
  GET /api/v1/datasets/{name}/render/{format}

Prometheus metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.commandConfig(cmd, nil)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("data") {
				cfg.Server.DataDir = dataDir
			}

			logger := loggerFromContext(cmd.Context())
			runner, err := c.newRunner(cmd.Context(), cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			hooks := observability.NewPrometheusHooks(reg)
			observability.SetPipelineHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			defer observability.Reset()

			srv := server.New(server.Options{
				Runner:   runner,
				Config:   cfg,
				Logger:   logger,
				Gatherer: reg,
			})
			printInfo("Serving %s on %s", cfg.Server.DataDir, StyleLink.Render("http://"+displayAddr(cfg.Server.Addr)))
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&dataDir, "data", "", "directory holding the dataset folders (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// displayAddr makes a bare ":port" address clickable.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
