// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/interviewd/internal/domain/session/gateway"
	"github.com/ManuGH/interviewd/internal/domain/session/lifecycle"
	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
	"github.com/ManuGH/interviewd/internal/domain/session/store"
	"github.com/ManuGH/interviewd/internal/log"
	"github.com/ManuGH/interviewd/internal/metrics"
	"github.com/ManuGH/interviewd/internal/telemetry"
)

func (c *Controller) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	c.mu.Lock()
	attrs := telemetry.SessionAttributes(c.sess.ID, string(c.sess.Status), op, c.epoch)
	c.mu.Unlock()
	ctx, span := c.tracer.Start(ctx, "interviewd.session."+op)
	span.SetAttributes(attrs...)
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(telemetry.ErrorAttributes(string(lifecycle.ReasonOf(err)))...)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Start begins a NOT_STARTED session or resumes a PAUSED one.
func (c *Controller) Start(ctx context.Context) (err error) {
	ctx, span := c.startSpan(ctx, "start")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	if err := c.guardLocked("start", lifecycle.EvStart); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.starting || c.completing {
		err := c.failLocked("start", lifecycle.NewReasonError(model.RInvalidTransition, "start or completion already in progress", nil))
		c.mu.Unlock()
		return err
	}
	from := c.sess.Status
	id := c.sess.ID
	c.starting = true
	c.mu.Unlock()

	var res ports.StartResult
	var callErr error
	if from == model.StatusNotStarted {
		res, callErr = c.deps.Evaluator.StartSession(ctx, id)
	} else {
		res, callErr = c.deps.Evaluator.ResumeSession(ctx, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.starting = false
	if c.closed {
		return c.failLocked("start", closedError())
	}
	if callErr != nil {
		return c.failLocked("start", callErr)
	}
	if err := c.transitionLocked(lifecycle.EvStart); err != nil {
		return c.failLocked("start", err)
	}
	c.lastReason = model.RNone

	switch {
	case res.TimeRemaining > 0:
		c.sess.TimeRemaining = res.TimeRemaining
	case from == model.StatusNotStarted:
		c.sess.TimeRemaining = c.sess.DurationBudget
	}
	if res.Progress > c.sess.Progress {
		c.sess.Progress = res.Progress
	}
	if res.Opening != "" {
		if _, err := c.convo.Append(model.RoleEvaluator, res.Opening); err == nil {
			c.syncConversationLocked()
		}
	}

	c.startPollerLocked()
	c.speakLastEvaluatorTurnLocked()
	return nil
}

// SubmitTurn sends content as the candidate's turn. Both turns are appended
// only after the evaluator confirmed; on failure nothing is appended and the
// content is kept for retry.
func (c *Controller) SubmitTurn(ctx context.Context, content string) (err error) {
	ctx, span := c.startSpan(ctx, "submit_turn")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	if c.closed {
		err := c.failLocked("submit_turn", closedError())
		c.mu.Unlock()
		return err
	}
	if strings.TrimSpace(content) == "" {
		err := c.failLocked("submit_turn", lifecycle.NewReasonError(model.RBadRequest, "empty turn", nil))
		c.mu.Unlock()
		return err
	}
	if err := c.guardLocked("submit_turn", lifecycle.EvSubmitTurn); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.completing {
		err := c.failLocked("submit_turn", lifecycle.NewReasonError(model.RInvalidTransition, "completion in progress", nil))
		c.mu.Unlock()
		return err
	}
	if c.turnInFlight {
		err := c.failLocked("submit_turn", lifecycle.NewReasonError(model.RTurnInFlight, "turn already in flight", nil))
		c.mu.Unlock()
		return err
	}
	c.turnInFlight = true
	c.retryContent = ""
	c.partial = ""
	id := c.sess.ID
	epoch := c.epoch
	c.mu.Unlock()

	reply, sendErr := c.deps.Gateway.Send(ctx, id, content)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.turnInFlight = false

	if c.closed || c.sess.Status == model.StatusCompleted {
		staleResults.WithLabelValues("turn").Inc()
		return c.failLocked("submit_turn", lifecycle.NewReasonError(model.RSessionClosed, "session ended while the turn was in flight", nil))
	}
	if sendErr != nil {
		var se *gateway.SendError
		if errors.As(sendErr, &se) {
			c.retryContent = se.Content
		} else if !errors.Is(sendErr, lifecycle.ErrTurnInFlight) {
			c.retryContent = content
		}
		return c.failLocked("submit_turn", sendErr)
	}

	if _, err := c.convo.AppendExchange(content, reply.Reply); err != nil {
		return c.failLocked("submit_turn", lifecycle.NewReasonError(model.RBadRequest, "turn rejected by log", err))
	}
	c.syncConversationLocked()
	if reply.Progress > c.sess.Progress {
		c.sess.Progress = reply.Progress
	}
	c.lastReason = model.RNone
	c.logger.Debug().Str(log.FieldEvent, "turn.confirmed").Int(log.FieldTurnCount, c.sess.TurnCount).Msg("turn confirmed")

	// A reply that lands after a pause is recorded but neither spoken nor
	// allowed to schedule completion.
	if epoch != c.epoch || c.sess.Status != model.StatusInProgress {
		staleResults.WithLabelValues("turn_effects").Inc()
		return nil
	}
	c.speakLocked(reply.Reply)
	if reply.ShouldEnd {
		c.scheduleGraceLocked()
	}
	return nil
}

// Pause stops all background activity, moves to PAUSED and then informs the
// evaluator. A failed acknowledgement is logged; the local pause stands.
func (c *Controller) Pause(ctx context.Context) (err error) {
	ctx, span := c.startSpan(ctx, "pause")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	if err := c.guardLocked("pause", lifecycle.EvPause); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.completing {
		err := c.failLocked("pause", lifecycle.NewReasonError(model.RInvalidTransition, "completion in progress", nil))
		c.mu.Unlock()
		return err
	}
	c.stopBackgroundLocked()
	if err := c.transitionLocked(lifecycle.EvPause); err != nil {
		err = c.failLocked("pause", err)
		c.mu.Unlock()
		return err
	}
	c.lastReason = model.RNone
	id := c.sess.ID
	c.mu.Unlock()

	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.PauseTimeout)
	defer cancel()
	if ackErr := c.deps.Evaluator.PauseSession(ackCtx, id); ackErr != nil {
		c.logger.Warn().Err(ackErr).Str(log.FieldEvent, "session.pause_ack_failed").Msg("evaluator did not acknowledge pause")
	}
	return nil
}

// Complete finalizes the session. It is idempotent: a completed session
// returns its ScoreCard, and concurrent callers share one evaluator call.
// On failure the session keeps its previous status.
func (c *Controller) Complete(ctx context.Context) (card model.ScoreCard, err error) {
	ctx, span := c.startSpan(ctx, "complete")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	if c.sess.Status == model.StatusCompleted && c.sess.ScoreCard != nil {
		card := *c.sess.ScoreCard
		c.mu.Unlock()
		return card, nil
	}
	if err := c.guardLocked("complete", lifecycle.EvComplete); err != nil {
		c.mu.Unlock()
		return model.ScoreCard{}, err
	}
	if c.starting {
		err := c.failLocked("complete", lifecycle.NewReasonError(model.RInvalidTransition, "start in progress", nil))
		c.mu.Unlock()
		return model.ScoreCard{}, err
	}
	if !c.completing {
		c.completing = true
		c.stopBackgroundLocked()
		c.epoch++
		c.logger.Info().Str(log.FieldEvent, "session.completing").Uint64(log.FieldEpoch, c.epoch).Msg("completing session")
	}
	id := c.sess.ID
	c.mu.Unlock()

	got, callErr := c.deps.Completer.Complete(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.Status == model.StatusCompleted && c.sess.ScoreCard != nil {
		return *c.sess.ScoreCard, nil
	}
	if callErr != nil {
		if c.completing {
			c.completing = false
			if !c.closed && c.sess.Status == model.StatusInProgress {
				c.startPollerLocked()
			}
		}
		return model.ScoreCard{}, c.failLocked("complete", callErr)
	}
	if c.closed {
		c.completing = false
		return got, nil
	}

	c.stopBackgroundLocked()
	if err := c.transitionLocked(lifecycle.EvComplete); err != nil {
		c.completing = false
		return model.ScoreCard{}, c.failLocked("complete", err)
	}
	c.completing = false
	stored := got
	c.sess.ScoreCard = &stored
	c.lastReason = model.RNone
	c.retryContent = ""
	c.archiveLocked()
	return got, nil
}

func (c *Controller) archiveLocked() {
	if c.deps.Archive == nil {
		return
	}
	rec := store.Record{Session: c.sess.Clone(), ArchivedAt: c.now()}
	archive, backend := c.deps.Archive, c.deps.ArchiveBackend
	c.workers.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := archive.Put(ctx, rec)
		metrics.RecordArchiveWrite(backend, err)
		if err != nil {
			c.logger.Error().Err(err).Str(log.FieldEvent, "archive.failed").Msg("failed to archive completed session")
			return
		}
		c.logger.Info().Str(log.FieldEvent, "archive.stored").Msg("completed session archived")
	})
}

// ToggleListening starts or stops speech recognition. Presses inside the
// debounce window are ignored. Without a recognizer the session is switched
// to text input for good and ErrUnsupportedCapability is returned.
func (c *Controller) ToggleListening(ctx context.Context) (err error) {
	_, span := c.startSpan(ctx, "toggle_listening")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("toggle_listening", lifecycle.EvToggleListening); err != nil {
		return err
	}

	now := c.now()
	if c.opts.ToggleDebounce > 0 && !c.lastToggle.IsZero() && now.Sub(c.lastToggle) < c.opts.ToggleDebounce {
		return nil
	}
	c.lastToggle = now

	if c.forcedText || !c.in.Supported() {
		c.forceTextLocked()
		return c.failLocked("toggle_listening", lifecycle.NewReasonError(model.RUnsupportedCapability, "speech recognition unavailable", nil))
	}
	if c.in.Listening() {
		c.in.Stop()
		c.partial = ""
		return nil
	}

	c.out.Stop()
	c.mode = model.ModeVoice
	if _, err := c.in.Start(c.ctx, c.listenHandler(c.epoch)); err != nil {
		if errors.Is(err, ports.ErrUnsupported) {
			c.forceTextLocked()
		}
		return c.failLocked("toggle_listening", err)
	}
	return nil
}

// SetInputMode switches between voice and text input.
func (c *Controller) SetInputMode(mode model.InputMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !mode.Valid() {
		return c.failLocked("set_mode", lifecycle.NewReasonError(model.RBadRequest, "unknown input mode "+string(mode), nil))
	}
	if err := c.guardLocked("set_mode", lifecycle.EvSetMode); err != nil {
		return err
	}
	if mode == model.ModeVoice && (c.forcedText || !c.in.Supported()) {
		c.forceTextLocked()
		return c.failLocked("set_mode", lifecycle.NewReasonError(model.RUnsupportedCapability, "speech recognition unavailable", nil))
	}
	if mode == model.ModeText {
		c.in.Stop()
		c.out.Stop()
		c.partial = ""
	}
	if c.mode != mode {
		c.logger.Info().Str(log.FieldEvent, "session.mode").Str(log.FieldMode, string(mode)).Msg("input mode changed")
	}
	c.mode = mode
	return nil
}
