// SPDX-License-Identifier: MIT

// Package health serves liveness (/healthz) and readiness (/readyz).
// Readiness aggregates the evaluator breaker, archive and cache checks;
// a degraded dependency keeps the instance ready.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/interviewd/internal/log"
)

// Status is the health of one component or of the whole process.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// worse reports whether a is more severe than b.
func worse(a, b Status) bool {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	return rank[a] > rank[b]
}

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Details   map[string]any         `json:"details,omitempty"`
}

// ReadinessResponse is the readiness payload.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs registered checkers and reports process details.
type Manager struct {
	version string
	started time.Time

	mu       sync.RWMutex
	checkers []Checker
	details  map[string]func() any
}

// NewManager creates a Manager reporting version.
func NewManager(version string) *Manager {
	return &Manager{
		version: version,
		started: time.Now(),
		details: make(map[string]func() any),
	}
}

// RegisterChecker adds a dependency check.
func (m *Manager) RegisterChecker(checker Checker) {
	m.mu.Lock()
	m.checkers = append(m.checkers, checker)
	m.mu.Unlock()
}

// RegisterDetail adds a value computed on every liveness response, such as
// the number of live sessions.
func (m *Manager) RegisterDetail(name string, value func() any) {
	m.mu.Lock()
	m.details[name] = value
	m.mu.Unlock()
}

// runChecks probes all checkers concurrently and returns their results
// with the worst status.
func (m *Manager) runChecks(ctx context.Context) (map[string]CheckResult, Status) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	overall := StatusHealthy
	if len(checkers) == 0 {
		return nil, overall
	}

	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			res := c.Check(ctx)
			res.LatencyMs = time.Since(start).Milliseconds()
			results[i] = res
		}()
	}
	wg.Wait()

	out := make(map[string]CheckResult, len(checkers))
	for i, c := range checkers {
		out[c.Name()] = results[i]
		if worse(results[i].Status, overall) {
			overall = results[i].Status
		}
	}
	return out, overall
}

// Health is the liveness view. The process is alive whenever it answers;
// verbose adds component checks and lets them color the status.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
		Details:   map[string]any{"uptimeSeconds": int64(time.Since(m.started).Seconds())},
	}

	m.mu.RLock()
	for name, fn := range m.details {
		resp.Details[name] = fn()
	}
	m.mu.RUnlock()

	if verbose {
		resp.Checks, resp.Status = m.runChecks(ctx)
	}
	return resp
}

// Ready is the readiness view: ready unless a required check is unhealthy.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	checks, status := m.runChecks(ctx)
	return ReadinessResponse{
		Ready:     status != StatusUnhealthy,
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// ServeHealth always answers 200; ?verbose=true includes checks.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	resp := m.Health(r.Context(), r.URL.Query().Get("verbose") == "true")
	writeResponse(w, r, http.StatusOK, resp, string(resp.Status))
}

// ServeReady answers 503 while a required dependency is unhealthy.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Warn().Str("event", "readiness.failed").Str("status", string(resp.Status)).Msg("not ready")
	}
	writeResponse(w, r, code, resp, string(resp.Status))
}

func writeResponse(w http.ResponseWriter, r *http.Request, code int, body any, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Error().Err(err).Str("event", "health.encode_error").Str("status", status).Msg("failed to encode health response")
	}
}
