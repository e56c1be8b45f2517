// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package gateway sends candidate turns to the evaluator, one at a time per
// session.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/interviewd/internal/domain/session/lifecycle"
	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
)

// SendError is returned when a turn was not confirmed. Content is the
// attempted turn so the caller can offer it for retry.
type SendError struct {
	Content string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send turn: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Gateway is the single-flight turn round-trip.
type Gateway struct {
	evaluator ports.Evaluator
	timeout   time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New returns a gateway. timeout bounds each round-trip (0 = caller's ctx only).
func New(evaluator ports.Evaluator, timeout time.Duration) *Gateway {
	return &Gateway{
		evaluator: evaluator,
		timeout:   timeout,
		inFlight:  make(map[string]struct{}),
	}
}

// InFlight reports whether a turn for sessionID is outstanding.
func (g *Gateway) InFlight(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inFlight[sessionID]
	return ok
}

func (g *Gateway) acquire(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[sessionID]; busy {
		return false
	}
	g.inFlight[sessionID] = struct{}{}
	return true
}

func (g *Gateway) release(sessionID string) {
	g.mu.Lock()
	delete(g.inFlight, sessionID)
	g.mu.Unlock()
}

// Send delivers content and returns the evaluator's reply. A second call
// for the same session while one is outstanding fails fast with
// lifecycle.ErrTurnInFlight.
func (g *Gateway) Send(ctx context.Context, sessionID, content string) (ports.EvaluatorReply, error) {
	if strings.TrimSpace(content) == "" {
		return ports.EvaluatorReply{}, lifecycle.NewReasonError(model.RBadRequest, "empty turn", nil)
	}
	if !g.acquire(sessionID) {
		return ports.EvaluatorReply{}, lifecycle.NewReasonError(model.RTurnInFlight, "turn already in flight", nil)
	}
	defer g.release(sessionID)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := g.evaluator.SendTurn(ctx, sessionID, content)
	observeTurn(err, time.Since(start))
	if err != nil {
		return ports.EvaluatorReply{}, lifecycle.WrapWithReasonClass(&SendError{Content: content, Err: err})
	}
	return reply, nil
}
