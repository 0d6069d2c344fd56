// Package main runs the API gateway: the REST and GraphQL facades over the
// three catalog services.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yasminebenbraiek/multimedia-library-api/config"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway/graphql"
	resthttp "github.com/yasminebenbraiek/multimedia-library-api/gateway/http"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
	"github.com/yasminebenbraiek/multimedia-library-api/pkg/cli"
)

const (
	appName = "api-gateway"

	// healthInterval refreshes the backend_up gauge between /health requests
	healthInterval = 15 * time.Second
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	flags := cli.Register(fs)
	fs.Usage = func() {
		cli.PrintHelp(os.Stderr, fs, appName, "REST and GraphQL gateway for the library catalog")
	}
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := flags.Check(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if flags.ShowVersion {
		fmt.Printf("%s version %s\n", appName, cli.Version)
		return nil
	}
	if flags.ShowHelp {
		fs.Usage()
		return nil
	}

	if err := cli.LoadEnvFile(flags.EnvFile); err != nil {
		return err
	}

	logger := cli.SetupLogger(os.Stdout, flags.LogLevel, flags.LogFormat, appName)
	slog.SetDefault(logger)

	cfg, err := cli.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	logger.Info("Starting API gateway",
		"version", cli.Version,
		"build_time", cli.BuildTime,
		"listen_addr", cfg.Gateway.ListenAddr,
		"graphql_path", cfg.Gateway.GraphQLPath)

	registry := metric.NewMetricsRegistry()

	dispatcher, err := newDispatcher(cfg, registry, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn("Closing backend connections failed", "error", err)
		}
	}()

	srv, err := newServer(cfg, dispatcher, registry, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, srv, dispatcher, cfg.Metrics, registry, flags.ShutdownTimeout, logger)
}

// newDispatcher dials every catalog service named in the configuration
func newDispatcher(cfg *config.Config, registry *metric.MetricsRegistry, logger *slog.Logger) (*gateway.Dispatcher, error) {
	backends, err := gateway.Dial(cfg.Gateway)
	if err != nil {
		return nil, fmt.Errorf("dial backends: %w", err)
	}
	for _, b := range backends {
		logger.Info("Backend configured", "kind", string(b.Schema().Kind), "service", b.Schema().Service)
	}

	d, err := gateway.NewDispatcher(backends,
		gateway.WithLogger(logger),
		gateway.WithMetrics(registry),
		gateway.WithCallTimeout(cfg.Gateway.CallTimeout()))
	if err != nil {
		for _, b := range backends {
			_ = b.Close()
		}
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}
	return d, nil
}

// newServer mounts the REST collections at "/" and the graph endpoint at the
// configured path, sharing one rate limiter.
func newServer(
	cfg *config.Config,
	dispatcher *gateway.Dispatcher,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*gateway.Server, error) {
	limiter, err := gateway.NewRateLimiter(cfg.Gateway.RateLimit, registry)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}

	rest, err := resthttp.NewGateway(dispatcher, cfg.Gateway,
		resthttp.WithLogger(logger),
		resthttp.WithMetrics(registry),
		resthttp.WithRateLimiter(limiter),
		resthttp.WithHealth(dispatcher.Health))
	if err != nil {
		return nil, fmt.Errorf("create REST facade: %w", err)
	}

	gql, err := graphql.NewGateway(dispatcher, cfg.Gateway,
		graphql.WithLogger(logger),
		graphql.WithMetrics(registry),
		graphql.WithRateLimiter(limiter))
	if err != nil {
		return nil, fmt.Errorf("create GraphQL facade: %w", err)
	}

	srv, err := gateway.NewServer(cfg.Gateway, []gateway.Mount{
		{Prefix: "/", Handler: rest},
		{Prefix: cfg.Gateway.GraphQLPath, Handler: gql},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create HTTP server: %w", err)
	}
	return srv, nil
}

// serve runs the HTTP server, the metrics endpoint and the health probe loop
// until ctx is canceled or one of them fails.
func serve(
	ctx context.Context,
	srv *gateway.Server,
	dispatcher *gateway.Dispatcher,
	metricsCfg config.MetricsConfig,
	registry *metric.MetricsRegistry,
	shutdownTimeout time.Duration,
	logger *slog.Logger,
) error {
	g, gctx := errgroup.WithContext(ctx)

	ready := make(chan struct{})
	g.Go(func() error {
		return srv.Start(gctx, ready)
	})

	var metricsServer *metric.Server
	if metricsCfg.Enabled {
		metricsServer = metric.NewServer(metricsCfg.Port, metricsCfg.Path, registry)
		g.Go(metricsServer.Start)
		logger.Info("Metrics endpoint enabled", "address", metricsServer.Address())
	}

	g.Go(func() error {
		ticker := time.NewTicker(healthInterval)
		defer ticker.Stop()
		for {
			st := dispatcher.Health(gctx)
			if !st.IsHealthy() {
				logger.Warn("Backends not healthy", "status", st.Status, "message", st.Message)
			}
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	g.Go(func() error {
		select {
		case <-ready:
			logger.Info("API gateway started", "address", srv.Addr())
		case <-gctx.Done():
		}
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if metricsServer != nil {
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				logger.Warn("Stopping metrics server failed", "error", err)
			}
		}
		return srv.Stop(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("API gateway shutdown complete")
	return nil
}
