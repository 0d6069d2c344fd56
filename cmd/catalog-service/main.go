// Package main runs one catalog service: the gRPC CRUD service for a single
// kind (book, magazine or audiovisual) over its own SQLite database.
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

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/config"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
	"github.com/yasminebenbraiek/multimedia-library-api/pkg/cli"
	"github.com/yasminebenbraiek/multimedia-library-api/service"
	"github.com/yasminebenbraiek/multimedia-library-api/storage/sqlstore"
)

const appName = "catalog-service"

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
	var kindName string
	fs.StringVar(&kindName, "kind", os.Getenv("LIBRARY_KIND"),
		"Kind to serve: book, magazine, audiovisual (env: LIBRARY_KIND)")
	fs.Usage = func() {
		cli.PrintHelp(os.Stderr, fs, appName, "gRPC catalog service for one kind")
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

	kind, err := catalog.ParseKind(kindName)
	if err != nil {
		return fmt.Errorf("invalid -kind: %w", err)
	}
	schema, err := catalog.Lookup(kind)
	if err != nil {
		return err
	}

	if err := cli.LoadEnvFile(flags.EnvFile); err != nil {
		return err
	}

	logger := cli.SetupLogger(os.Stdout, flags.LogLevel, flags.LogFormat, appName).With("kind", string(kind))
	slog.SetDefault(logger)

	cfg, err := cli.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	svcCfg, err := cfg.Service(kind)
	if err != nil {
		return err
	}
	if flags.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	logger.Info("Starting catalog service",
		"version", cli.Version,
		"build_time", cli.BuildTime,
		"service", schema.Service,
		"database", svcCfg.Database)

	store, err := sqlstore.Open(svcCfg.Database, schema)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Closing database failed", "error", err)
		}
	}()

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	handler := service.NewCatalogService(
		sqlstore.NewAdapter(store, sqlstore.WithLogger(logger), sqlstore.WithMetrics(metrics)),
		logger, metrics)
	srv, err := service.NewServer(svcCfg.ListenAddr, schema, handler,
		service.WithLogger(logger),
		service.WithMetrics(registry),
		service.WithTLS(svcCfg.TLS))
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, srv, cfg.ServiceMetrics(kind), registry, flags.ShutdownTimeout, logger)
}

// serve runs the gRPC server and the metrics endpoint until ctx is canceled
// or one of them fails.
func serve(
	ctx context.Context,
	srv *service.Server,
	metricsCfg config.MetricsConfig,
	registry *metric.MetricsRegistry,
	shutdownTimeout time.Duration,
	logger *slog.Logger,
) error {
	g, gctx := errgroup.WithContext(ctx)

	if err := srv.Start(gctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	var metricsServer *metric.Server
	if metricsCfg.Enabled {
		metricsServer = metric.NewServer(metricsCfg.Port, metricsCfg.Path, registry)
		g.Go(metricsServer.Start)
		logger.Info("Metrics endpoint enabled", "address", metricsServer.Address())
	}

	g.Go(func() error {
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
	logger.Info("Catalog service shutdown complete")
	return nil
}
