// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package completion finalizes sessions exactly once and caches the result.
package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/interviewd/internal/cache"
	"github.com/ManuGH/interviewd/internal/domain/session/lifecycle"
	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
	"github.com/ManuGH/interviewd/internal/log"
)

const keyPrefix = "scorecard:"

// Config wires an Aggregator.
type Config struct {
	Evaluator ports.Evaluator
	Cache     cache.Cache
	// TTL of cached score cards; 0 keeps them until evicted.
	TTL time.Duration
	// Timeout bounds the evaluator call. The call is detached from the
	// caller's context so a departing caller does not lose the result.
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// Aggregator is the idempotent path to a ScoreCard.
type Aggregator struct {
	evaluator ports.Evaluator
	cache     cache.Cache
	ttl       time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
	group     singleflight.Group
}

// New builds an Aggregator. A nil cache falls back to an in-memory one.
func New(cfg Config) *Aggregator {
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemoryCache(0)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	logger := log.WithComponent("completion")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Aggregator{
		evaluator: cfg.Evaluator,
		cache:     cfg.Cache,
		ttl:       cfg.TTL,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Cached returns a previously produced score card.
func (a *Aggregator) Cached(ctx context.Context, sessionID string) (model.ScoreCard, bool) {
	raw, ok := a.cache.Get(ctx, keyPrefix+sessionID)
	if !ok {
		return model.ScoreCard{}, false
	}
	var card model.ScoreCard
	if err := json.Unmarshal(raw, &card); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldSessionID, sessionID).Msg("discarding corrupt cached score card")
		a.cache.Delete(ctx, keyPrefix+sessionID)
		return model.ScoreCard{}, false
	}
	return card, true
}

// Complete returns the session's score card, calling the evaluator at most
// once across concurrent callers. Failures are not cached.
func (a *Aggregator) Complete(ctx context.Context, sessionID string) (model.ScoreCard, error) {
	if card, ok := a.Cached(ctx, sessionID); ok {
		completionTotal.WithLabelValues("cached").Inc()
		return card, nil
	}

	ch := a.group.DoChan(sessionID, func() (any, error) {
		return a.fetch(context.WithoutCancel(ctx), sessionID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return model.ScoreCard{}, res.Err
		}
		return res.Val.(model.ScoreCard), nil
	case <-ctx.Done():
		return model.ScoreCard{}, lifecycle.WrapWithReasonClass(ctx.Err())
	}
}

func (a *Aggregator) fetch(ctx context.Context, sessionID string) (model.ScoreCard, error) {
	if card, ok := a.Cached(ctx, sessionID); ok {
		completionTotal.WithLabelValues("cached").Inc()
		return card, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	card, err := a.evaluator.CompleteSession(ctx, sessionID)
	completionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		completionTotal.WithLabelValues("error").Inc()
		return model.ScoreCard{}, lifecycle.WrapWithReasonClass(fmt.Errorf("complete session: %w", err))
	}
	if err := card.Validate(); err != nil {
		completionTotal.WithLabelValues("invalid").Inc()
		return model.ScoreCard{}, lifecycle.NewReasonError(model.RNetworkFailure, "evaluator returned invalid score card", err)
	}
	completionTotal.WithLabelValues("ok").Inc()

	raw, err := json.Marshal(card)
	if err == nil {
		err = a.cache.Set(ctx, keyPrefix+sessionID, raw, a.ttl)
	}
	if err != nil {
		a.logger.Warn().Err(err).Str(log.FieldSessionID, sessionID).Msg("failed to cache score card")
	}
	return card, nil
}
