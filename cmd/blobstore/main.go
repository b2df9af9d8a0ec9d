// Package main is the entry point for the blobstore in-memory object storage server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/bleepstore/blobstore/blobstore"
	"github.com/bleepstore/blobstore/internal/config"
	"github.com/bleepstore/blobstore/internal/logging"
	"github.com/bleepstore/blobstore/internal/metrics"
	"github.com/bleepstore/blobstore/internal/server"
)

func main() {
	configPath := flag.String("config", "blobstore.yaml", "path to configuration file")
	port := flag.Int("port", 0, "override listening port (default: from config or 9000)")
	host := flag.String("host", "", "override listening host (default: from config or 0.0.0.0)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (default: from config or info)")
	logFormat := flag.String("log-format", "", "log format: text, json (default: from config or text)")
	shutdownTimeout := flag.Int("shutdown-timeout", 0, "graceful shutdown timeout in seconds (default: from config or 30)")
	maxObjectSize := flag.Int64("max-object-size", 0, "maximum object size in bytes (default: from config or 5368709120)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Command-line flags override config file values.
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}
	if *shutdownTimeout != 0 {
		cfg.Server.ShutdownTimeout = *shutdownTimeout
	}
	if *maxObjectSize != 0 {
		cfg.Store.MaxObjectSize = *maxObjectSize
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	opts := []blobstore.Option{blobstore.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		metrics.Register()
		opts = append(opts, blobstore.WithObserver(metrics.Observer{}))
	}
	engine := blobstore.New(opts...)
	if cfg.Metrics.Enabled {
		if err := metrics.RegisterStats(engine); err != nil {
			fmt.Fprintf(os.Stderr, "failed to register store metrics: %v\n", err)
			os.Exit(1)
		}
	}

	for _, name := range cfg.Store.Containers {
		if err := engine.CreateContainer(name); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create container %q: %v\n", name, err)
			os.Exit(1)
		}
	}
	if n := len(cfg.Store.Containers); n > 0 {
		slog.Info("Containers created", "count", n)
	}

	srv, err := server.New(cfg, engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}

	if err := run(srv, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	stats := engine.Stats()
	slog.Info("Server stopped",
		"containers", stats.Containers,
		"objects", stats.Objects,
		"bytes", humanize.IBytes(stats.Bytes),
	)
}

// run serves until SIGINT or SIGTERM, then waits for in-flight requests
// up to the configured shutdown timeout. Objects live only in memory and
// are discarded on exit.
func run(srv *server.Server, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Blobstore listening", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
		return nil
	})
	return g.Wait()
}
