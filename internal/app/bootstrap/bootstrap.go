// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bootstrap is the production composition root of interviewd.
package bootstrap

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/interviewd/internal/api"
	"github.com/ManuGH/interviewd/internal/api/middleware"
	"github.com/ManuGH/interviewd/internal/audit"
	"github.com/ManuGH/interviewd/internal/bridge"
	"github.com/ManuGH/interviewd/internal/cache"
	"github.com/ManuGH/interviewd/internal/config"
	"github.com/ManuGH/interviewd/internal/daemon"
	"github.com/ManuGH/interviewd/internal/domain/session/completion"
	"github.com/ManuGH/interviewd/internal/domain/session/controller"
	"github.com/ManuGH/interviewd/internal/domain/session/gateway"
	"github.com/ManuGH/interviewd/internal/domain/session/store"
	"github.com/ManuGH/interviewd/internal/evaluator"
	"github.com/ManuGH/interviewd/internal/health"
	applog "github.com/ManuGH/interviewd/internal/log"
	"github.com/ManuGH/interviewd/internal/telemetry"
)

// Container is the production composition root output.
type Container struct {
	Config       config.AppConfig
	ConfigHolder *config.Holder
	Logger       zerolog.Logger
	Server       *api.Server
	Registry     *controller.Registry
	Manager      daemon.Manager
	App          *daemon.App
}

// Options select how the container is built.
type Options struct {
	Version    string
	ConfigPath string
	// Environment replaces the process environment for config loading (tests).
	Environment map[string]string
	// SkipStartupChecks disables the pre-flight checks (tests).
	SkipStartupChecks bool
}

// WireServices builds the production dependency graph and returns a runnable container.
// On error every resource opened so far is released.
func WireServices(ctx context.Context, opts Options) (_ *Container, err error) {
	if ctx == nil {
		return nil, fmt.Errorf("wire services context is nil")
	}

	applog.Configure(applog.Config{
		Level:   "info",
		Service: "interviewd",
		Version: opts.Version,
	})

	loader := config.NewLoader(opts.ConfigPath)
	if opts.Environment != nil {
		loader.WithEnvironment(opts.Environment)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	applog.Reconfigure(applog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: opts.Version,
	})
	logger := applog.WithComponent("bootstrap")
	logConfigSource(logger, opts.ConfigPath, cfg)

	if !opts.SkipStartupChecks {
		if err := health.PerformStartupChecks(ctx, cfg); err != nil {
			return nil, fmt.Errorf("startup checks failed: %w", err)
		}
	}

	var closers []daemon.ShutdownHook
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i](context.Background())
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: opts.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	closers = append(closers, tp.Shutdown)

	scoreCache, err := cache.New(cache.Config{
		Backend: cfg.Cache.Backend,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		},
		Logger: applog.WithComponent("cache"),
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	closers = append(closers, func(context.Context) error { return scoreCache.Close() })

	archive, err := store.OpenArchive(cfg.Archive.Backend, cfg.Archive.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	closers = append(closers, func(context.Context) error { return archive.Close() })

	client := evaluator.NewClient(cfg.Evaluator.BaseURL, evaluator.Options{
		Timeout:          cfg.Evaluator.Timeout,
		MaxRetries:       cfg.Evaluator.MaxRetries,
		Backoff:          cfg.Evaluator.Backoff,
		MaxBackoff:       cfg.Evaluator.MaxBackoff,
		Token:            cfg.Evaluator.Token,
		UserAgent:        "interviewd/" + opts.Version,
		RateLimit:        rate.Limit(cfg.Evaluator.RateLimit),
		RateLimitBurst:   cfg.Evaluator.RateBurst,
		BreakerThreshold: cfg.Evaluator.BreakerThreshold,
		BreakerReset:     cfg.Evaluator.BreakerReset,
	})

	registry := controller.NewRegistry(controller.Deps{
		Evaluator: client,
		Gateway:   gateway.New(client, cfg.Session.TurnTimeout),
		Completer: completion.New(completion.Config{
			Evaluator: client,
			Cache:     scoreCache,
			TTL:       cfg.Cache.TTL,
			Timeout:   cfg.Session.CompleteTimeout,
		}),
		Archive:        archive,
		ArchiveBackend: cfg.Archive.Backend,
	}, SessionOptions(cfg.Session))
	closers = append(closers, registry.Close)

	healthMgr := health.NewManager(opts.Version)
	healthMgr.RegisterDetail("liveSessions", func() any { return len(registry.IDs()) })
	healthMgr.RegisterChecker(health.NewBreakerChecker("evaluator", func() string {
		return string(client.BreakerState())
	}))
	healthMgr.RegisterChecker(health.NewFuncChecker("archive", func(ctx context.Context) error {
		_, err := archive.List(ctx, 1)
		return err
	}))
	if hc, ok := scoreCache.(interface{ HealthCheck(context.Context) error }); ok {
		healthMgr.RegisterChecker(health.NewFuncChecker("cache", hc.HealthCheck).Optional())
	}

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.LogService
	}
	auditLog := audit.NewLogger()
	srv := api.New(api.Deps{
		Audit:    auditLog,
		Registry: registry,
		Archive:  archive,
		Health:   healthMgr,
		Bridge:   bridge.Config{CheckOrigin: originChecker(cfg.API.AllowedOrigins)},
		Stack: middleware.StackConfig{
			EnableCORS:            len(cfg.API.AllowedOrigins) > 0,
			AllowedOrigins:        cfg.API.AllowedOrigins,
			EnableSecurityHeaders: true,
			EnableMetrics:         true,
			TracingService:        tracing,
			EnableLogging:         true,
			RateLimit:             cfg.API.RateLimit,
			RateWindow:            cfg.API.RateWindow,
		},
	})

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.ListenAddr), daemon.Deps{
		Logger:     applog.WithComponent("daemon"),
		APIHandler: srv.Handler(),
	})
	if err != nil {
		return nil, fmt.Errorf("create daemon manager: %w", err)
	}
	// LIFO: bridges go first, telemetry last.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("archive", func(context.Context) error { return archive.Close() })
	mgr.RegisterShutdownHook("cache", func(context.Context) error { return scoreCache.Close() })
	mgr.RegisterShutdownHook("registry", registry.Close)
	mgr.RegisterShutdownHook("speech_bridges", func(context.Context) error {
		srv.CloseBridges()
		return nil
	})

	holder := config.NewHolder(cfg, loader)
	app := daemon.NewApp(logger, mgr, holder, func(newCfg config.AppConfig) {
		applog.Reconfigure(applog.Config{
			Level:   newCfg.LogLevel,
			Service: newCfg.LogService,
			Version: opts.Version,
		})
		registry.SetDefaults(SessionOptions(newCfg.Session))
		auditLog.ConfigReload("system", "success", map[string]string{"file": loader.Path()})
	})

	return &Container{
		Config:       cfg,
		ConfigHolder: holder,
		Logger:       logger,
		Server:       srv,
		Registry:     registry,
		Manager:      mgr,
		App:          app,
	}, nil
}

// Run blocks until ctx is cancelled and the daemon has shut down.
func (c *Container) Run(ctx context.Context) error {
	if c == nil || c.App == nil {
		return errors.New("container not wired")
	}
	return c.App.Run(ctx)
}

func logConfigSource(logger zerolog.Logger, path string, cfg config.AppConfig) {
	if path != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", path).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if configBytes, err := json.Marshal(cfg.Redacted()); err == nil {
		hash := sha256.Sum256(configBytes)
		logger.Info().
			Str("event", "config.snapshot").
			Str("sha256", fmt.Sprintf("%x", hash)).
			Msg("configuration snapshot fingerprint")
	}
}
