// Command bitsieved serves the /select filter endpoint over an index in
// local, S3 or MinIO storage.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hupe1980/bitsieve"
	"github.com/hupe1980/bitsieve/codec"
	"github.com/hupe1980/bitsieve/server"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bitsieved: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "bitsieved: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg LogConfig) (*bitsieve.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if cfg.Format == "json" {
		return bitsieve.NewJSONLogger(level), nil
	}
	return bitsieve.NewTextLogger(level), nil
}

// serviceOptions maps the index configuration onto service options.
func serviceOptions(cfg IndexConfig, logger *bitsieve.Logger, metrics bitsieve.MetricsCollector) ([]bitsieve.Option, error) {
	c, ok := codec.ByName(cfg.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", cfg.Codec)
	}
	return []bitsieve.Option{
		bitsieve.WithLogger(logger),
		bitsieve.WithMetricsCollector(metrics),
		bitsieve.WithCodec(c),
		bitsieve.WithIDField(cfg.IDField),
		bitsieve.WithIDMapCapacity(cfg.IDMapCapacity),
		bitsieve.WithRetryInterval(cfg.RetryInterval),
		bitsieve.WithBuildConcurrency(cfg.BuildConcurrency),
		bitsieve.WithColumnCacheBytes(cfg.ColumnCacheBytes),
		bitsieve.WithMaxBitsetBytes(cfg.MaxBitsetBytes),
		bitsieve.WithMaxConcurrentSelects(cfg.MaxConcurrentSelects),
		bitsieve.WithSelectMemoryLimit(cfg.SelectMemoryBytes),
	}, nil
}

func run(ctx context.Context, cfg *Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts, err := serviceOptions(cfg.Index, logger, bitsieve.NewPrometheusMetrics(reg))
	if err != nil {
		return err
	}
	svc, err := bitsieve.Open(ctx, store, opts...)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer svc.Close()

	logger.Info("index opened",
		"backend", cfg.Storage.Backend,
		"generation", svc.Generation(),
		"docs", svc.NumDocs(),
	)

	srv := &http.Server{
		Addr: cfg.Server.ListenAddress,
		Handler: server.New(svc, server.Options{
			Logger:          logger.Logger,
			Gatherer:        reg,
			MaxRequestBytes: cfg.Server.MaxRequestBytes,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Server.RefreshInterval > 0 {
		go pollRefresh(ctx, svc, cfg.Server.RefreshInterval)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pollRefresh refreshes svc every interval until ctx is done. Failures are
// logged by the service and the current generation stays published.
func pollRefresh(ctx context.Context, svc *bitsieve.Service, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = svc.Refresh(ctx)
		}
	}
}
