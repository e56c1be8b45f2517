// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/interviewd/internal/config"
)

// ReloadFunc applies a reloaded configuration to running subsystems.
type ReloadFunc func(config.AppConfig)

// App runs the server together with config hot reload (file watcher and
// SIGHUP). Any member failing stops the rest.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	holder       *config.Holder
	onReload     ReloadFunc
	reloadSignal os.Signal
}

// NewApp creates an App. holder and onReload may be nil, which disables reload.
func NewApp(logger zerolog.Logger, manager Manager, holder *config.Holder, onReload ReloadFunc) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		holder:       holder,
		onReload:     onReload,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	g, ctx := errgroup.WithContext(ctx)

	if a.holder != nil {
		// A broken watcher only costs hot reload; SIGHUP still works.
		if err := a.holder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_failed").Msg("config file watcher unavailable")
		}
		if a.onReload != nil {
			updates := make(chan config.AppConfig, 1)
			a.holder.RegisterListener(updates)
			g.Go(func() error { return a.applyLoop(ctx, updates) })
		}
		if a.reloadSignal != nil {
			g.Go(func() error { return a.signalLoop(ctx) })
		}
	}

	g.Go(func() error { return a.manager.Start(ctx) })
	return g.Wait()
}

func (a *App) applyLoop(ctx context.Context, updates <-chan config.AppConfig) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-updates:
			a.onReload(cfg)
			a.logger.Info().Str("event", "config.applied").Str("log_level", cfg.LogLevel).Msg("reloaded configuration applied")
		}
	}
}

func (a *App) signalLoop(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, a.reloadSignal)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-sig:
			a.logger.Info().Str("event", "config.reload_signal").Str("signal", s.String()).Msg("reloading configuration")
			if err := a.holder.Reload(ctx); err != nil {
				a.logger.Warn().Err(err).Str("event", "config.reload_rejected").Msg("keeping current configuration")
			}
		}
	}
}
