// Package server implements the crisprtower HTTP API.
//
// Every request runs the same pipeline as the CLI against a dataset folder
// below the configured data directory. Requests never share a view: the
// interactive operations (switch, scale, collapse) are query parameters
// replayed on a fresh layout, so cached scenes stay valid across clients.
//
// # Routes
//
//	GET /healthz                               liveness and version
//	GET /metrics                               Prometheus metrics
//	GET /api/v1/formats                        supported output formats
//	GET /api/v1/datasets                       dataset folders under the data dir
//	GET /api/v1/datasets/{name}                dataset summary and scale search
//	GET /api/v1/datasets/{name}/scene          scene JSON
//	GET /api/v1/datasets/{name}/render/{format} rendered artifact
//
// The scene and render routes accept switch (comma-separated node names),
// scale, collapse, title and refresh query parameters.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/crisprtower/pkg/config"
	"github.com/matzehuels/crisprtower/pkg/httputil"
	"github.com/matzehuels/crisprtower/pkg/pipeline"
)

// shutdownTimeout bounds how long in-flight requests may finish after the
// server context is cancelled.
const shutdownTimeout = 10 * time.Second

// Server serves layouts of the datasets below a data directory.
type Server struct {
	runner   *pipeline.Runner
	cfg      config.Config
	logger   *log.Logger
	gatherer prometheus.Gatherer
}

// Options configures a [Server].
type Options struct {
	Runner *pipeline.Runner
	Config config.Config
	Logger *log.Logger
	// Gatherer backs /metrics. The route is omitted when nil.
	Gatherer prometheus.Gatherer
}

// New creates a server. A nil runner gets an uncached one.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	runner := opts.Runner
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	return &Server{
		runner:   runner,
		cfg:      opts.Config,
		logger:   logger,
		gatherer: opts.Gatherer,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.Observe)
	r.Use(middleware.Recoverer)
	if d := s.cfg.Server.Timeout.Duration; d > 0 {
		r.Use(middleware.Timeout(d))
	}

	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/formats", s.formats)
		r.Get("/datasets", s.listDatasets)
		r.Route("/datasets/{name}", func(r chi.Router) {
			r.Get("/", s.datasetInfo)
			r.Get("/scene", s.scene)
			r.Get("/render/{format}", s.render)
		})
	})
	return r
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr, "data_dir", s.cfg.Server.DataDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
