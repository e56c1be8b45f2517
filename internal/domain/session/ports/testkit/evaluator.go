// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package testkit provides a scriptable in-memory evaluator.
package testkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
)

// Evaluator implements ports.Evaluator. Zero value is usable; gates block
// the matching call until a value is received or ctx ends.
type Evaluator struct {
	mu sync.Mutex

	Budget  float64
	Opening string
	Card    model.ScoreCard
	Detail  *ports.SessionDetail

	TurnGate     chan struct{}
	CompleteGate chan struct{}
	// TurnStarted, if set, receives one value when SendTurn begins.
	TurnStarted chan struct{}

	replies     []ports.EvaluatorReply
	statuses    []ports.Status
	turnErr     error
	statusErr   error
	completeErr error
	pauseErr    error

	calls       map[string]int
	turnsActive int
	maxActive   int
	lastContent string
}

func (e *Evaluator) record(name string) {
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[name]++
}

// Calls returns how often the named method was invoked.
func (e *Evaluator) Calls(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[name]
}

// MaxConcurrentTurns returns the highest number of overlapping SendTurn calls.
func (e *Evaluator) MaxConcurrentTurns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}

// LastContent returns the content of the last SendTurn call.
func (e *Evaluator) LastContent() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastContent
}

// QueueReplies appends replies handed out by SendTurn in order.
func (e *Evaluator) QueueReplies(r ...ports.EvaluatorReply) {
	e.mu.Lock()
	e.replies = append(e.replies, r...)
	e.mu.Unlock()
}

// QueueStatus appends status samples; the last one repeats.
func (e *Evaluator) QueueStatus(s ...ports.Status) {
	e.mu.Lock()
	e.statuses = append(e.statuses, s...)
	e.mu.Unlock()
}

func (e *Evaluator) SetTurnErr(err error) {
	e.mu.Lock()
	e.turnErr = err
	e.mu.Unlock()
}

func (e *Evaluator) SetStatusErr(err error) {
	e.mu.Lock()
	e.statusErr = err
	e.mu.Unlock()
}

func (e *Evaluator) SetCompleteErr(err error) {
	e.mu.Lock()
	e.completeErr = err
	e.mu.Unlock()
}

func (e *Evaluator) SetPauseErr(err error) {
	e.mu.Lock()
	e.pauseErr = err
	e.mu.Unlock()
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Evaluator) CreateSession(_ context.Context, cfg ports.SessionConfig) (ports.CreatedSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("CreateSession")
	budget := cfg.DurationMinutes
	if e.Budget > 0 {
		budget = e.Budget
	}
	return ports.CreatedSession{SessionID: fmt.Sprintf("sess-%d", e.calls["CreateSession"]), DurationBudget: budget}, nil
}

func (e *Evaluator) StartSession(_ context.Context, _ string) (ports.StartResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("StartSession")
	return ports.StartResult{Opening: e.Opening, TimeRemaining: e.Budget}, nil
}

func (e *Evaluator) ResumeSession(_ context.Context, _ string) (ports.StartResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("ResumeSession")
	remaining := e.Budget
	if n := len(e.statuses); n > 0 {
		remaining = e.statuses[0].TimeRemaining
	}
	return ports.StartResult{TimeRemaining: remaining}, nil
}

func (e *Evaluator) SendTurn(ctx context.Context, _ string, content string) (ports.EvaluatorReply, error) {
	e.mu.Lock()
	e.record("SendTurn")
	e.lastContent = content
	e.turnsActive++
	if e.turnsActive > e.maxActive {
		e.maxActive = e.turnsActive
	}
	gate, started := e.TurnGate, e.TurnStarted
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.turnsActive--
		e.mu.Unlock()
	}()

	if started != nil {
		started <- struct{}{}
	}
	if err := wait(ctx, gate); err != nil {
		return ports.EvaluatorReply{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.turnErr != nil {
		return ports.EvaluatorReply{}, e.turnErr
	}
	if len(e.replies) > 0 {
		r := e.replies[0]
		e.replies = e.replies[1:]
		return r, nil
	}
	return ports.EvaluatorReply{Reply: "next question about " + content}, nil
}

func (e *Evaluator) GetStatus(_ context.Context, _ string) (ports.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("GetStatus")
	if e.statusErr != nil {
		return ports.Status{}, e.statusErr
	}
	if len(e.statuses) == 0 {
		return ports.Status{TimeRemaining: e.Budget, Status: model.StatusInProgress}, nil
	}
	s := e.statuses[0]
	if len(e.statuses) > 1 {
		e.statuses = e.statuses[1:]
	}
	return s, nil
}

func (e *Evaluator) PauseSession(_ context.Context, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("PauseSession")
	return e.pauseErr
}

func (e *Evaluator) CompleteSession(ctx context.Context, _ string) (model.ScoreCard, error) {
	e.mu.Lock()
	e.record("CompleteSession")
	gate := e.CompleteGate
	e.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return model.ScoreCard{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.completeErr != nil {
		return model.ScoreCard{}, e.completeErr
	}
	return e.Card, nil
}

func (e *Evaluator) GetSession(_ context.Context, id string) (ports.SessionDetail, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("GetSession")
	if e.Detail == nil {
		return ports.SessionDetail{}, fmt.Errorf("session %s: %w", id, ports.ErrNotFound)
	}
	return *e.Detail, nil
}
