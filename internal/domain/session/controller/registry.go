// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/interviewd/internal/domain/session/lifecycle"
	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
	"github.com/ManuGH/interviewd/internal/log"
)

// Registry holds the live controllers of this process.
type Registry struct {
	deps   Deps
	logger zerolog.Logger

	mu       sync.RWMutex
	defaults Options
	sessions map[string]*Controller
	closed   bool
}

// NewRegistry builds an empty registry. defaults apply to every controller
// created afterwards.
func NewRegistry(deps Deps, defaults Options) *Registry {
	deps = deps.withDefaults()
	logger := log.WithComponent("registry")
	if deps.Logger != nil {
		logger = *deps.Logger
	}
	return &Registry{
		deps:     deps,
		logger:   logger,
		defaults: normalizeOptions(defaults),
		sessions: make(map[string]*Controller),
	}
}

// SetDefaults replaces the options used for new controllers. Running
// sessions keep theirs.
func (r *Registry) SetDefaults(opts Options) {
	r.mu.Lock()
	r.defaults = normalizeOptions(opts)
	r.mu.Unlock()
	r.logger.Info().Str(log.FieldEvent, "registry.defaults_updated").Msg("session defaults updated")
}

// Defaults returns the options used for new controllers.
func (r *Registry) Defaults() Options {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// Create asks the evaluator for a new session and registers its controller.
func (r *Registry) Create(ctx context.Context, cfg ports.SessionConfig) (*Controller, error) {
	if cfg.Kind == "" {
		cfg.Kind = model.KindInterview
	}
	if cfg.DurationMinutes < 0 {
		return nil, lifecycle.NewReasonError(model.RBadRequest, "negative duration", nil)
	}
	created, err := r.deps.Evaluator.CreateSession(ctx, cfg)
	if err != nil {
		return nil, lifecycle.WrapWithReasonClass(fmt.Errorf("create session: %w", err))
	}

	budget := created.DurationBudget
	if budget <= 0 {
		budget = cfg.DurationMinutes
	}
	sess := model.Session{
		ID:             created.SessionID,
		Kind:           cfg.Kind,
		Status:         model.StatusNotStarted,
		DurationBudget: budget,
		TimeRemaining:  budget,
		CreatedAt:      r.deps.Now(),
	}
	return r.register(sess)
}

// Get returns the controller for id, rehydrating it from the evaluator when
// this process has not seen the session yet.
func (r *Registry) Get(ctx context.Context, id string) (*Controller, error) {
	if c, ok := r.Lookup(id); ok {
		return c, nil
	}

	detail, err := r.deps.Evaluator.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, lifecycle.NewReasonError(model.RNotFound, "session "+id, err)
		}
		return nil, lifecycle.WrapWithReasonClass(fmt.Errorf("load session: %w", err))
	}
	if !detail.Status.Valid() {
		return nil, lifecycle.NewReasonError(model.RUnknown, "evaluator reported unknown status "+string(detail.Status), nil)
	}

	sess := model.Session{
		ID:             id,
		Kind:           detail.Kind,
		Status:         detail.Status,
		DurationBudget: detail.DurationBudget,
		TimeRemaining:  detail.TimeRemaining,
		Progress:       detail.Progress,
		Conversation:   detail.Conversation,
		ScoreCard:      detail.ScoreCard,
		CreatedAt:      r.deps.Now(),
	}
	if sess.Status == model.StatusCompleted && sess.ScoreCard == nil {
		card, err := r.deps.Completer.Complete(ctx, id)
		if err != nil {
			return nil, err
		}
		sess.ScoreCard = &card
	}
	if sess.Status != model.StatusCompleted {
		sess.ScoreCard = nil
	}
	return r.register(sess)
}

func (r *Registry) register(sess model.Session) (*Controller, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, lifecycle.NewReasonError(model.RSessionClosed, "registry closed", nil)
	}
	if existing, ok := r.sessions[sess.ID]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	c := New(sess, r.deps, r.defaults)
	r.sessions[sess.ID] = c
	r.mu.Unlock()

	activeSessions.Inc()
	r.logger.Info().
		Str(log.FieldEvent, "registry.registered").
		Str(log.FieldSessionID, sess.ID).
		Str(log.FieldNewState, string(sess.Status)).
		Msg("session controller registered")
	return c, nil
}

// Lookup returns a registered controller without contacting the evaluator.
func (r *Registry) Lookup(id string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[id]
	return c, ok
}

// IDs lists registered session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Remove closes and forgets the controller for id.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	c, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return lifecycle.NewReasonError(model.RNotFound, "session "+id, nil)
	}
	activeSessions.Dec()
	return c.Close(ctx)
}

// Close tears down every controller.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	all := r.sessions
	r.sessions = make(map[string]*Controller)
	r.mu.Unlock()

	var errs []error
	for _, c := range all {
		activeSessions.Dec()
		if err := c.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", c.ID(), err))
		}
	}
	return errors.Join(errs...)
}
