package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"switchboard-hq/relay/pkg/cli"
	"switchboard-hq/relay/pkg/config"
	"switchboard-hq/relay/pkg/limits/ratelimit"
	"switchboard-hq/relay/pkg/telemetry/logging"
	"switchboard-hq/relay/pkg/telemetry/metrics"
	"switchboard-hq/relay/pkg/telemetry/tracing"
)

var serveFlags struct {
	healthListen    string
	metricsListen   string
	logLevel        string
	noWatch         bool
	shutdownTimeout time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run health checks, metrics and routing endpoints",
	Long: `Start the relay runtime with the specified configuration.

serve registers every configured provider, probes provider health on the
configured schedule, persists quota windows to the configured storage and
serves:

  /health, /ready, /version          liveness, readiness and build info
  /routing/chain?target=<id>         resolved provider chain
  /routing/providers                 quota and health per provider
  /routing/stats                     routing statistics
  /metrics                           Prometheus metrics

Provider and fallback chain changes in the config file are applied without a
restart.

Examples:
  # Start with default config
  relay serve

  # Override listen addresses
  relay serve --health-listen 0.0.0.0:8081 --metrics-listen 0.0.0.0:9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.healthListen, "health-listen", "", "override health listen address")
	serveCmd.Flags().StringVar(&serveFlags.metricsListen, "metrics-listen", "", "override metrics listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.noWatch, "no-watch", false, "do not reload the config file on change")
	serveCmd.Flags().DurationVar(&serveFlags.shutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	cfg := config.GetConfig()

	if serveFlags.healthListen != "" {
		cfg.Health.ListenAddress = serveFlags.healthListen
	}
	if serveFlags.metricsListen != "" {
		cfg.Telemetry.Metrics.ListenAddress = serveFlags.metricsListen
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}

	logger, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	srv, err := newServer(cfg, logger)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "relay v%s\n", Version)
	fmt.Fprintf(out, "✓ Configuration loaded from %s (%d providers)\n", cfgFile, len(cfg.Providers))

	errCh, err := srv.start(ctx)
	if err != nil {
		srv.shutdown(context.Background())
		return cli.NewCommandError("serve", err)
	}
	for _, addr := range srv.addrs {
		fmt.Fprintf(out, "✓ Listening on %s\n", addr)
	}

	if !serveFlags.noWatch {
		watcher, err := config.NewWatcher(cfgFile, config.WithLogger(logger.With("component", "config.watcher")))
		if err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		} else {
			defer watcher.Close()
			go func() {
				if err := watcher.Watch(ctx, srv.reload); err != nil {
					logger.Warn("config watcher stopped", "error", err)
				}
			}()
		}
	}

	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	var runErr error
	select {
	case err := <-errCh:
		runErr = cli.NewCommandError("serve", err)
	case <-ctx.Done():
		fmt.Fprintln(out, "\nShutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveFlags.shutdownTimeout)
	defer cancel()
	srv.shutdown(shutdownCtx)

	if runErr == nil {
		fmt.Fprintln(out, "✓ Stopped")
	}
	return runErr
}

// server is the long-running relay runtime.
type server struct {
	cfg     *config.Config
	logger  *slog.Logger
	stack   *stack
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	flusher *cron.Cron
	servers []*http.Server
	addrs   []string
}

// newServer builds telemetry, quota storage and the routing stack for cfg.
func newServer(cfg *config.Config, logger *slog.Logger) (*server, error) {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.MetricsEnabled() {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	store, err := openStorage(cfg.Limits.Storage)
	if err != nil {
		_ = tracer.Shutdown(context.Background())
		return nil, err
	}

	s, err := newStack(cfg, stackOptions{
		logger:  logger,
		metrics: collector,
		tracer:  tracer,
		store:   store,
	})
	if err != nil {
		_ = store.Close()
		_ = tracer.Shutdown(context.Background())
		return nil, err
	}

	return &server{
		cfg:     cfg,
		logger:  logger,
		stack:   s,
		metrics: collector,
		tracer:  tracer,
	}, nil
}

// handlers returns the HTTP handler for each listen address. Metrics share
// the health listener when both addresses are equal.
func (s *server) handlers() map[string]http.Handler {
	healthMux := http.NewServeMux()
	s.stack.monitor.Mount(healthMux, Version, GitCommit, BuildDate)
	s.stack.router.Mount(healthMux)

	out := map[string]http.Handler{
		s.cfg.Health.ListenAddress: tracing.HTTPMiddleware(healthMux),
	}

	if s.metrics == nil {
		return out
	}
	metricsCfg := s.cfg.Telemetry.Metrics
	if metricsCfg.ListenAddress == s.cfg.Health.ListenAddress {
		healthMux.Handle(metricsCfg.Path, s.metrics.Handler())
		return out
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle(metricsCfg.Path, s.metrics.Handler())
	out[metricsCfg.ListenAddress] = metricsMux
	return out
}

// start restores quota windows, starts health checks and the snapshot
// flusher, and begins serving. Listener failures after startup are sent on
// the returned channel.
func (s *server) start(ctx context.Context) (<-chan error, error) {
	restored, err := s.stack.restore(ctx)
	if err != nil {
		s.logger.Warn("failed to restore quota windows", "error", err)
	} else if restored > 0 {
		s.logger.Info("restored quota windows", "providers", restored)
	}

	if err := s.stack.monitor.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start health monitor: %w", err)
	}

	if err := s.startFlusher(ctx); err != nil {
		return nil, err
	}

	errCh := make(chan error, 2)
	for addr, handler := range s.handlers() {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		srv := &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.servers = append(s.servers, srv)
		s.addrs = append(s.addrs, ln.Addr().String())

		s.logger.Info("starting HTTP server", "address", ln.Addr().String())
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server error on %s: %w", ln.Addr(), err)
			}
		}()
	}
	return errCh, nil
}

func (s *server) startFlusher(ctx context.Context) error {
	spec := "@every " + s.cfg.Limits.Storage.FlushInterval.String()
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { s.flush(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule quota flush: %w", err)
	}
	c.Start()
	s.flusher = c
	return nil
}

// flush writes open quota windows to storage and drops closed ones.
func (s *server) flush(ctx context.Context) {
	if err := s.stack.flush(ctx); err != nil {
		s.logger.Warn("failed to flush quota windows", "error", err)
		return
	}
	if s.stack.store == nil {
		return
	}
	removed, err := s.stack.store.Cleanup(ctx, time.Now().Add(-ratelimit.Window))
	if err != nil {
		s.logger.Warn("failed to clean up quota windows", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("removed expired quota windows", "count", removed)
	}
}

// reload applies provider and fallback chain changes from a new config.
// Other sections take effect on restart.
func (s *server) reload(cfg *config.Config) {
	config.SetConfig(cfg)
	if err := s.stack.apply(cfg); err != nil {
		s.logger.Error("failed to apply reloaded configuration", "error", err)
		return
	}
	s.logger.Info("configuration reloaded",
		"providers", len(cfg.Providers),
		"fallback_chain", cfg.Routing.FallbackChain,
	)
}

// shutdown stops serving, writes a final quota snapshot and releases every
// component.
func (s *server) shutdown(ctx context.Context) {
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}
	if s.flusher != nil {
		<-s.flusher.Stop().Done()
	}
	s.flush(ctx)
	s.stack.close()
	if err := s.tracer.Shutdown(ctx); err != nil {
		s.logger.Warn("tracer shutdown failed", "error", err)
	}
}
