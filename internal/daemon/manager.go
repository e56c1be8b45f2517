// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"github.com/ManuGH/interviewd/internal/metrics"
)

// ShutdownHook releases one resource during graceful shutdown.
type ShutdownHook func(ctx context.Context) error

// Manager owns the HTTP listener and the ordered teardown of everything
// registered behind it.
type Manager interface {
	// Start serves until ctx is cancelled or the server fails, then shuts down.
	Start(ctx context.Context) error

	// Shutdown stops the server and runs hooks newest first. Idempotent.
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook appends a hook; hooks run in reverse order.
	RegisterShutdownHook(name string, hook ShutdownHook)

	// Addr returns the bound listen address once started.
	Addr() string
}

type namedHook struct {
	name string
	run  ShutdownHook
}

type manager struct {
	cfg    ServerConfig
	deps   Deps
	logger zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	addr     string
	hooks    []namedHook
	started  bool
	stopping bool
}

// NewManager validates deps and returns a Manager that has not bound yet.
func NewManager(serverCfg ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if serverCfg.ShutdownTimeout <= 0 {
		serverCfg.ShutdownTimeout = 15 * time.Second
	}
	return &manager{
		cfg:    serverCfg,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "daemon").Logger(),
	}, nil
}

func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	serveErr, err := m.serve()
	if err != nil {
		return fmt.Errorf("start API server: %w", err)
	}

	var cause error
	select {
	case cause = <-serveErr:
		m.logger.Error().Err(cause).Str("event", "daemon.serve_failed").Msg("API server failed, shutting down")
	case <-ctx.Done():
		m.logger.Info().Str("event", "daemon.stop_requested").Msg("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(cause, m.Shutdown(shutdownCtx))
}

// serve binds the listener synchronously so bind errors reach Start.
func (m *manager) serve() (<-chan error, error) {
	ln, err := net.Listen("tcp", m.cfg.ListenAddr)
	if err != nil {
		return nil, err
	}
	if m.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, m.cfg.MaxConns)
	}

	srv := &http.Server{
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.cfg.ReadTimeout,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		WriteTimeout:      m.cfg.WriteTimeout,
		IdleTimeout:       m.cfg.IdleTimeout,
		MaxHeaderBytes:    m.cfg.MaxHeaderBytes,
	}
	m.mu.Lock()
	m.server = srv
	m.addr = ln.Addr().String()
	m.mu.Unlock()

	m.logger.Info().
		Str("event", "daemon.listening").
		Str("addr", ln.Addr().String()).
		Int("max_conns", m.cfg.MaxConns).
		Dur("write_timeout", m.cfg.WriteTimeout).
		Msg("API server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve: %w", err)
		}
	}()
	return errCh, nil
}

func (m *manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.stopping:
		m.mu.Unlock()
		return nil
	case !m.started:
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	srv := m.server
	hooks := append([]namedHook(nil), m.hooks...)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		err := h.run(ctx)
		metrics.ObserveShutdownHook(h.name, time.Since(start), err)
		ev := m.logger.Debug()
		if err != nil {
			ev = m.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
		ev.Str("event", "daemon.hook").Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook ran")
	}

	if len(errs) > 0 {
		m.logger.Error().Int("errors", len(errs)).Str("event", "daemon.stopped").Msg("shutdown completed with errors")
		return fmt.Errorf("shutdown: %w", errors.Join(errs...))
	}
	m.logger.Info().Str("event", "daemon.stopped").Msg("daemon stopped")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, run: hook})
}
