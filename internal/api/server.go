// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes practice sessions over HTTP and attaches browser
// speech bridges over websocket.
package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/interviewd/internal/api/middleware"
	"github.com/ManuGH/interviewd/internal/audit"
	"github.com/ManuGH/interviewd/internal/bridge"
	"github.com/ManuGH/interviewd/internal/domain/session/controller"
	"github.com/ManuGH/interviewd/internal/domain/session/store"
	"github.com/ManuGH/interviewd/internal/health"
	"github.com/ManuGH/interviewd/internal/log"
)

const maxBodyBytes = 64 << 10

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Registry *controller.Registry
	Archive  store.Archive
	Health   *health.Manager
	Bridge   bridge.Config
	Stack    middleware.StackConfig
	Audit    *audit.Logger
}

// Server serves the interviewd API.
type Server struct {
	registry  *controller.Registry
	archive   store.Archive
	health    *health.Manager
	bridgeCfg bridge.Config
	stack     middleware.StackConfig
	audit     *audit.Logger
	logger    zerolog.Logger

	mu      sync.Mutex
	bridges map[*bridge.Bridge]string // bridge -> session id
}

// New builds a Server. Registry is required; a nil Archive serves an
// empty history.
func New(deps Deps) *Server {
	if deps.Archive == nil {
		deps.Archive = store.NewMemoryArchive()
	}
	if deps.Health == nil {
		deps.Health = health.NewManager("")
	}
	if deps.Audit == nil {
		deps.Audit = audit.NewLogger()
	}
	if deps.Stack.OnRateLimited == nil {
		deps.Stack.OnRateLimited = deps.Audit.RateLimitExceeded
	}
	return &Server{
		registry:  deps.Registry,
		archive:   deps.Archive,
		health:    deps.Health,
		bridgeCfg: deps.Bridge,
		stack:     deps.Stack,
		audit:     deps.Audit,
		logger:    log.WithComponent("api"),
		bridges:   make(map[*bridge.Bridge]string),
	}
}

// Handler returns the routed handler with the ingress stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(s.stack)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/start", s.handleStart)
				r.Post("/pause", s.handlePause)
				r.Post("/complete", s.handleComplete)
				r.Post("/listen", s.handleToggleListening)
				r.Post("/turns", s.handleSubmitTurn)
				r.Put("/mode", s.handleSetMode)
				r.Get("/speech", s.handleSpeech)
			})
		})
		r.Get("/history", s.handleListHistory)
		r.Get("/history/{id}", s.handleGetHistory)
	})
	return r
}

func (s *Server) trackBridge(b *bridge.Bridge, sessionID string) {
	s.mu.Lock()
	s.bridges[b] = sessionID
	s.mu.Unlock()
}

func (s *Server) untrackBridge(b *bridge.Bridge) {
	s.mu.Lock()
	delete(s.bridges, b)
	s.mu.Unlock()
}

// closeBridgesFor closes the bridges attached to sessionID.
func (s *Server) closeBridgesFor(sessionID string) {
	s.mu.Lock()
	var victims []*bridge.Bridge
	for b, id := range s.bridges {
		if id == sessionID {
			victims = append(victims, b)
		}
	}
	s.mu.Unlock()
	for _, b := range victims {
		_ = b.Close()
	}
}

// CloseBridges closes every attached speech bridge. http.Server.Shutdown
// does not track hijacked connections, so callers run this alongside it.
func (s *Server) CloseBridges() {
	s.mu.Lock()
	all := make([]*bridge.Bridge, 0, len(s.bridges))
	for b := range s.bridges {
		all = append(all, b)
	}
	s.mu.Unlock()
	for _, b := range all {
		_ = b.Close()
	}
}

// BridgeCount reports the number of attached bridges.
func (s *Server) BridgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bridges)
}
