// Package main provides the entry point for the payload-masker proxy.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sipico/payload-masker/internal/admin"
	"github.com/sipico/payload-masker/internal/config"
	"github.com/sipico/payload-masker/internal/control"
	"github.com/sipico/payload-masker/internal/masking"
	"github.com/sipico/payload-masker/internal/metrics"
	"github.com/sipico/payload-masker/internal/middleware"
	"github.com/sipico/payload-masker/internal/proxy"
	"github.com/sipico/payload-masker/internal/rules"
	"github.com/sipico/payload-masker/internal/storage"
)

const (
	version         = "0.1.0"
	maxRequestBytes = 10 << 20
	shutdownTimeout = 10 * time.Second
)

// app holds the wired components of a running proxy.
type app struct {
	store   *storage.SQLiteStorage
	rules   *rules.Service
	proxy   http.Handler
	admin   http.Handler
	metrics http.Handler
}

// Close releases the database.
func (a *app) Close() error {
	return a.store.Close()
}

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = loadRulesFile(cfg)
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger, logLevel := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, logLevel); err != nil {
		logger.Error("Payload masker stopped with error", "error", err)
		os.Exit(1)
	}
}

// newLogger returns a JSON logger whose level can be changed at runtime through
// the returned LevelVar. Call after cfg.Validate.
func newLogger(level string) (*slog.Logger, *slog.LevelVar) {
	lvl, _ := config.ParseLogLevel(level) //nolint:errcheck
	logLevel := new(slog.LevelVar)
	logLevel.Set(lvl)
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})), logLevel
}

// loadRulesFile applies the toggles of the rules file to cfg. The field rules
// themselves are read by the rules service on every reload.
func loadRulesFile(cfg *config.Config) error {
	if cfg.RulesFile == "" {
		return nil
	}
	rf, err := config.LoadRulesFile(cfg.RulesFile)
	if err != nil {
		return err
	}
	cfg.ApplyRules(rf)
	return nil
}

// routerOptions maps the configuration onto the proxy middleware chain.
func routerOptions(cfg *config.Config) proxy.RouterOptions {
	return proxy.RouterOptions{
		MaxRequestBytes: maxRequestBytes,
		Logging: middleware.LoggingOptions{
			Level:          slog.LevelInfo,
			LogRequests:    cfg.MaskRequestEnabled,
			LogResponses:   cfg.MaskResponseEnabled,
			MaskingEnabled: cfg.MaskingEnabled,
			MaxBodyBytes:   cfg.MaxLoggedBodyBytes,
		},
		MaskForwarded: cfg.MaskForwardedBodies,
		Bodies: middleware.BodyOptions{
			Requests:     true,
			Responses:    true,
			MaxBodyBytes: cfg.MaxLoggedBodyBytes,
		},
	}
}

// newApp opens the database, loads the startup rules and builds the proxy,
// admin and metrics handlers.
func newApp(ctx context.Context, cfg *config.Config, reg *prometheus.Registry, logger *slog.Logger, logLevel *slog.LevelVar) (*app, error) {
	if err := metrics.Init(reg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	masker := masking.NewMasker(nil, cfg.MaskChar())
	opts := []rules.Option{rules.WithStore(store), rules.WithLogger(logger)}
	if cfg.RulesFile != "" {
		opts = append(opts, rules.WithRulesFile(cfg.RulesFile))
	}
	svc := rules.NewService(masker, opts...)
	if err := svc.Reload(ctx, rules.SourceStartup); err != nil {
		_ = store.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	upstream, err := proxy.NewHandler(cfg.UpstreamURL, logger)
	if err != nil {
		_ = store.Close() //nolint:errcheck
		return nil, err
	}

	adminHandler := admin.NewHandler(store, svc, masker, logLevel, logger)
	if cfg.AdminToken != "" {
		hash, err := storage.HashKey(cfg.AdminToken)
		if err != nil {
			_ = store.Close() //nolint:errcheck
			return nil, fmt.Errorf("failed to hash admin token: %w", err)
		}
		adminHandler.SetAdminTokenHash(hash)
	} else {
		logger.Warn("ADMIN_TOKEN not set, admin API disabled")
	}

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", metrics.HandlerFor(reg))

	return &app{
		store:   store,
		rules:   svc,
		proxy:   proxy.NewRouter(upstream, masker, routerOptions(cfg), logger),
		admin:   adminHandler.NewRouter(),
		metrics: metricsRouter,
	}, nil
}

// startWatcher connects to Redis and keeps the remote rule layer in sync.
func startWatcher(ctx context.Context, cfg *config.Config, svc *rules.Service, logger *slog.Logger) (func(), error) {
	client := control.NewClient(cfg.RedisAddr)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	w := control.NewWatcher(client, cfg.RedisChannel, cfg.RedisRulesKey, svc, logger)
	if err := w.Start(ctx); err != nil {
		_ = client.Close() //nolint:errcheck
		return nil, err
	}
	return func() { _ = client.Close() }, nil //nolint:errcheck
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// run serves until ctx is cancelled or a listener fails, then shuts every
// server down.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, logLevel *slog.LevelVar) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(ctx, cfg, reg, logger, logLevel)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.RedisAddr != "" {
		closeWatcher, err := startWatcher(ctx, cfg, a.rules, logger)
		if err != nil {
			return err
		}
		defer closeWatcher()
	}

	servers := []*http.Server{
		newServer(cfg.ListenAddr, a.proxy),
		newServer(cfg.AdminListenAddr, a.admin),
		newServer(cfg.MetricsListenAddr, a.metrics),
	}
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server on %s: %w", srv.Addr, err)
			}
		}()
	}

	logger.Info("Payload masker started",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"admin_addr", cfg.AdminListenAddr,
		"metrics_addr", cfg.MetricsListenAddr,
		"upstream", cfg.UpstreamURL,
	)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errCh:
		logger.Error("Server error triggered shutdown", "error", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "addr", srv.Addr, "error", err)
		}
	}

	logger.Info("Shutdown complete")
	return runErr
}
