package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	collectorpro "github.com/uxmeas/collectorpro-sub003"
)

const (
	envBaseURL      = "COLLECTORPRO_BASE_URL"
	envSessionToken = "COLLECTORPRO_SESSION_TOKEN"
)

type flags struct {
	configPath  string
	envFile     string
	baseURL     string
	timeout     time.Duration
	retries     int
	debug       bool
	metricsAddr string
}

// app carries what every subcommand needs once PersistentPreRunE has run.
type app struct {
	flags   flags
	logger  *zap.Logger
	client  *collectorpro.Client
	metrics *http.Server
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(a.flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", a.flags.envFile, err)
	}

	logger, err := newLogger(a.flags.debug)
	if err != nil {
		return err
	}
	a.logger = logger

	cfg := collectorpro.DefaultConfig()
	if a.flags.configPath != "" {
		if cfg, err = collectorpro.LoadConfig(a.flags.configPath); err != nil {
			return err
		}
	}
	if base := os.Getenv(envBaseURL); base != "" {
		cfg.BaseURL = base
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = a.flags.baseURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = a.flags.timeout
	}
	if cmd.Flags().Changed("retries") {
		cfg.MaxRetries = a.flags.retries
	}

	registry := prometheus.NewRegistry()
	opts := []collectorpro.Option{
		collectorpro.WithName("cli"),
		collectorpro.WithLogger(collectorpro.NewZapLogger(logger)),
		collectorpro.WithMetricsCollector(collectorpro.NewMetricsCollectorWithRegistry(registry)),
		collectorpro.WithMiddleware(
			collectorpro.UserAgentMiddleware(""),
			collectorpro.BearerTokenMiddleware(collectorpro.StaticToken(os.Getenv(envSessionToken))),
		),
	}
	if a.flags.debug {
		opts = append(opts, collectorpro.WithDebug())
	}

	client, err := collectorpro.NewFromConfig(cfg, opts...)
	if err != nil {
		return err
	}
	a.client = client

	if cfg.Cache.JanitorInterval > 0 {
		client.StartJanitor(cmd.Context(), cfg.Cache.JanitorInterval)
	}
	if a.flags.metricsAddr != "" {
		a.serveMetrics(registry)
	}

	logger.Debug("client ready",
		zap.String("base_url", client.BaseURL()),
		zap.Duration("timeout", cfg.Timeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.String("cache_backend", cfg.Cache.Backend))
	return nil
}

func (a *app) serveMetrics(registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	a.metrics = &http.Server{
		Addr:              a.flags.metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv, logger := a.metrics, a.logger
	go func() {
		logger.Info("serving metrics", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// teardown releases whatever setup acquired. It is safe to call more than once.
func (a *app) teardown() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
		a.metrics = nil
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil && a.logger != nil {
			a.logger.Warn("closing cache", zap.Error(err))
		}
		a.client = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
		a.logger = nil
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
