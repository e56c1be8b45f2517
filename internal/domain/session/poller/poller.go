// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package poller samples remaining time and progress from the evaluator
// while a session is running.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
	"github.com/ManuGH/interviewd/internal/log"
)

// DefaultInterval matches the evaluator's status refresh cadence.
const DefaultInterval = 30 * time.Second

// Ticker is the subset of time.Ticker the poller needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Handler receives poll results. Sample runs for every successful fetch;
// Complete runs at most once for the lifetime of the Poller.
type Handler struct {
	Sample   func(ports.Status)
	Complete func()
}

// Config wires a poller for one session.
type Config struct {
	Evaluator ports.Evaluator
	SessionID string
	Interval  time.Duration
	NewTicker func(time.Duration) Ticker
	Logger    *zerolog.Logger
}

// Poller runs one status loop at a time. Its completion trigger is latched
// across Start/Stop cycles; runs started after it fired only sample.
type Poller struct {
	evaluator ports.Evaluator
	sessionID string
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	logger    zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	running bool
	cancel  context.CancelFunc
	fired   bool
	wg      sync.WaitGroup
}

// New builds a poller from cfg, filling defaults.
func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewRealTicker
	}
	logger := log.WithComponent("poller")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Poller{
		evaluator: cfg.Evaluator,
		sessionID: cfg.SessionID,
		interval:  cfg.Interval,
		newTicker: cfg.NewTicker,
		logger:    logger.With().Str(log.FieldSessionID, cfg.SessionID).Logger(),
	}
}

// Start begins polling, replacing any current run. It reports whether the
// completion trigger is still armed; once it has fired the new run only
// delivers samples, so a failed completion keeps time and progress current.
func (p *Poller) Start(ctx context.Context, h Handler) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	p.gen++
	gen := p.gen
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	ticker := p.newTicker(p.interval)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()
		p.loop(runCtx, gen, ticker, h)
	}()
	return !p.fired
}

// Stop cancels the current run. It does not wait for the goroutine; results
// of the cancelled run are never delivered.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	p.gen++
	p.running = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Wait blocks until every run has exited.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Running reports whether a run is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Fired reports whether the completion trigger has been used.
func (p *Poller) Fired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fired
}

func (p *Poller) current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen == gen
}

type latchResult int

const (
	latchFired latchResult = iota // this run fired the trigger and has stopped
	latchUsed                     // the trigger fired earlier; keep sampling
	latchStale                    // the run was replaced or stopped
)

func (p *Poller) latch(gen uint64) latchResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.gen != gen:
		return latchStale
	case p.fired:
		return latchUsed
	}
	p.fired = true
	p.stopLocked()
	return latchFired
}

func (p *Poller) loop(ctx context.Context, gen uint64, ticker Ticker, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		st, err := p.evaluator.GetStatus(ctx, p.sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			pollTotal.WithLabelValues("error").Inc()
			p.logger.Debug().Err(err).Str(log.FieldEvent, "poll.failed").Msg("status poll failed, retrying next tick")
			continue
		}
		if !p.current(gen) {
			pollTotal.WithLabelValues("stale").Inc()
			return
		}
		pollTotal.WithLabelValues("ok").Inc()
		if h.Sample != nil {
			h.Sample(st)
		}

		if !ShouldComplete(st) {
			continue
		}
		switch p.latch(gen) {
		case latchUsed:
			continue
		case latchStale:
			return
		}
		p.logger.Info().
			Str(log.FieldEvent, "poll.complete_trigger").
			Float64(log.FieldTimeRemaining, st.TimeRemaining).
			Bool("should_complete", st.ShouldComplete).
			Msg("status poll triggered completion")
		if h.Complete != nil {
			h.Complete()
		}
		return
	}
}

// ShouldComplete reports whether a status sample ends the session.
func ShouldComplete(st ports.Status) bool {
	return st.TimeRemaining <= 0 || st.ShouldComplete || st.Status == model.StatusCompleted
}
