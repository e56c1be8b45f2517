// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package controller owns the live state of practice sessions. A Controller
// is the only writer of its session: every mutation happens under its
// mutex, every network call happens outside it, and every asynchronous
// result carries the epoch it was issued under.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/interviewd/internal/domain/session/completion"
	"github.com/ManuGH/interviewd/internal/domain/session/conversation"
	"github.com/ManuGH/interviewd/internal/domain/session/gateway"
	"github.com/ManuGH/interviewd/internal/domain/session/lifecycle"
	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/poller"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
	"github.com/ManuGH/interviewd/internal/domain/session/speech"
	"github.com/ManuGH/interviewd/internal/domain/session/store"
	"github.com/ManuGH/interviewd/internal/log"
	"github.com/ManuGH/interviewd/internal/telemetry"
)

const unsupportedNotice = "Speech recognition is not supported on this device. Please use text input instead."

// Options are per-session tunables.
type Options struct {
	PollInterval time.Duration
	// EndGrace delays completion after the evaluator signals the end.
	EndGrace time.Duration
	// ToggleDebounce ignores repeated listen presses; negative disables it.
	ToggleDebounce time.Duration
	PauseTimeout   time.Duration
	Language       string
	SpeechRate     float64
	Mode           model.InputMode
}

func normalizeOptions(o Options) Options {
	if o.PollInterval <= 0 {
		o.PollInterval = poller.DefaultInterval
	}
	if o.EndGrace <= 0 {
		o.EndGrace = 2 * time.Second
	}
	if o.ToggleDebounce == 0 {
		o.ToggleDebounce = 300 * time.Millisecond
	}
	if o.PauseTimeout <= 0 {
		o.PauseTimeout = 10 * time.Second
	}
	if o.Language == "" {
		o.Language = "en-US"
	}
	if o.SpeechRate <= 0 {
		o.SpeechRate = 0.9
	}
	if !o.Mode.Valid() {
		o.Mode = model.ModeVoice
	}
	return o
}

// Deps are the collaborators shared by every controller.
type Deps struct {
	Evaluator ports.Evaluator
	Gateway   *gateway.Gateway
	Completer *completion.Aggregator
	// Archive receives completed sessions; nil disables archiving.
	Archive        store.Archive
	ArchiveBackend string

	// NewTicker and AfterFunc are clock seams for tests.
	NewTicker func(time.Duration) poller.Ticker
	AfterFunc func(time.Duration, func()) (stop func() bool)
	Now       func() time.Time
	Logger    *zerolog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Gateway == nil {
		d.Gateway = gateway.New(d.Evaluator, 0)
	}
	if d.Completer == nil {
		d.Completer = completion.New(completion.Config{Evaluator: d.Evaluator})
	}
	if d.NewTicker == nil {
		d.NewTicker = poller.NewRealTicker
	}
	if d.AfterFunc == nil {
		d.AfterFunc = func(dur time.Duration, f func()) func() bool {
			return time.AfterFunc(dur, f).Stop
		}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Controller drives one session.
type Controller struct {
	deps   Deps
	opts   Options
	logger zerolog.Logger
	tracer trace.Tracer

	// ctx is cancelled by Close; background work derives from it.
	ctx    context.Context
	cancel context.CancelFunc

	arb     *speech.Arbiter
	poller  *poller.Poller
	workers workerRegistry

	mu           sync.Mutex
	sess         model.Session
	convo        *conversation.Log
	in           *speech.Input
	out          *speech.Output
	speechGen    uint64
	mode         model.InputMode
	forcedText   bool
	notice       string
	partial      string
	turnInFlight bool
	retryContent string
	lastReason   model.ReasonCode
	starting     bool
	completing   bool
	epoch        uint64
	stopGrace    func() bool
	lastToggle   time.Time
	closed       bool
}

// New builds a controller for sess. A session that is already IN_PROGRESS
// starts polling immediately.
func New(sess model.Session, deps Deps, opts Options) *Controller {
	deps = deps.withDefaults()
	opts = normalizeOptions(opts)

	base := log.WithComponent("controller")
	if deps.Logger != nil {
		base = *deps.Logger
	}
	logger := base.With().Str(log.FieldSessionID, sess.ID).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	ctx = log.ContextWithSessionID(ctx, sess.ID)

	arb := speech.NewArbiter()
	c := &Controller{
		deps:   deps,
		opts:   opts,
		logger: logger,
		tracer: telemetry.Tracer("interviewd.controller"),
		ctx:    ctx,
		cancel: cancel,
		arb:    arb,
		poller: poller.New(poller.Config{
			Evaluator: deps.Evaluator,
			SessionID: sess.ID,
			Interval:  opts.PollInterval,
			NewTicker: deps.NewTicker,
			Logger:    &logger,
		}),
		sess:       sess.Clone(),
		convo:      conversation.Restore(sess.Conversation, deps.Now),
		in:         speech.NewInput(nil, arb, opts.Language),
		out:        speech.NewOutput(nil, arb, speech.OutputOptions{Lang: opts.Language, Rate: opts.SpeechRate}),
		mode:       opts.Mode,
		lastReason: model.RNone,
	}

	c.mu.Lock()
	c.syncConversationLocked()
	if c.sess.Status == model.StatusInProgress {
		c.startPollerLocked()
	}
	c.mu.Unlock()
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.sess.ID }

// Snapshot returns an immutable copy of the session and controller flags.
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.Snapshot{
		Session:      c.sess.Clone(),
		Mode:         c.mode,
		Listening:    c.in.Listening(),
		Speaking:     c.out.Speaking(),
		Partial:      c.partial,
		TurnInFlight: c.turnInFlight,
		Completing:   c.completing,
		RetryContent: c.retryContent,
		LastReason:   c.lastReason,
		Notice:       c.notice,
		Epoch:        c.epoch,
	}
}

// AttachSpeech installs the platform speech providers, replacing any
// previous ones. The returned detach func is a no-op once another
// attachment has replaced this one.
func (c *Controller) AttachSpeech(rec ports.Recognizer, synth ports.Synthesizer) (detach func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.installSpeechLocked(rec, synth)
	c.logger.Info().Str(log.FieldEvent, "speech.attached").
		Bool("recognition", c.in.Supported()).
		Bool("synthesis", c.out.Supported()).
		Msg("speech platform attached")

	if c.sess.Status == model.StatusInProgress && !c.closed {
		c.speakLastEvaluatorTurnLocked()
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.speechGen != gen {
			return
		}
		c.installSpeechLocked(nil, nil)
		c.logger.Info().Str(log.FieldEvent, "speech.detached").Msg("speech platform detached")
	}
}

func (c *Controller) installSpeechLocked(rec ports.Recognizer, synth ports.Synthesizer) uint64 {
	c.in.Stop()
	c.out.Stop()
	c.partial = ""
	c.speechGen++
	c.in = speech.NewInput(rec, c.arb, c.opts.Language)
	c.out = speech.NewOutput(synth, c.arb, speech.OutputOptions{Lang: c.opts.Language, Rate: c.opts.SpeechRate})
	return c.speechGen
}

// Close tears the controller down (navigation away): background work is
// cancelled synchronously, then joined. The session status is unchanged.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopBackgroundLocked()
	c.epoch++
	c.cancel()
	c.mu.Unlock()

	c.poller.Wait()
	err := c.workers.CloseAndWait(ctx)
	c.logger.Debug().Str(log.FieldEvent, "session.closed").Msg("controller closed")
	return err
}

func (c *Controller) now() time.Time { return c.deps.Now() }

func closedError() error {
	return lifecycle.NewReasonError(model.RSessionClosed, "controller closed", nil)
}

// guardLocked rejects ev if the controller is closed or the decision table
// forbids it.
func (c *Controller) guardLocked(op string, ev lifecycle.EventKind) error {
	if c.closed {
		return c.failLocked(op, closedError())
	}
	if err := lifecycle.Check(c.sess.Status, ev); err != nil {
		return c.failLocked(op, err)
	}
	return nil
}

// failLocked classifies err, records it as the last failure and returns
// the reason error.
func (c *Controller) failLocked(op string, err error) error {
	err = lifecycle.WrapWithReasonClass(err)
	reason := lifecycle.ReasonOf(err)
	c.lastReason = reason
	recordOpError(op, reason)

	ev := c.logger.Warn()
	switch reason {
	case model.RInvalidTransition, model.RTurnInFlight, model.RSessionClosed, model.RBadRequest:
		ev = c.logger.Debug()
	}
	ev.Err(err).
		Str(log.FieldOperation, op).
		Str(log.FieldReason, string(reason)).
		Str(log.FieldEvent, "session.op_failed").
		Msg("session operation failed")
	return err
}

func (c *Controller) transitionLocked(ev lifecycle.EventKind) error {
	from := c.sess.Status
	tr, err := lifecycle.Dispatch(&c.sess, ev, c.now())
	if err != nil {
		return err
	}
	c.epoch++
	recordTransition(tr.From, tr.To)
	c.logger.Info().
		Str(log.FieldEvent, "session.transition").
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(tr.To)).
		Uint64(log.FieldEpoch, c.epoch).
		Msg("session state changed")
	return nil
}

func (c *Controller) syncConversationLocked() {
	c.sess.Conversation = c.convo.Turns()
	c.sess.TurnCount = c.convo.Len()
}

// stopBackgroundLocked cancels the poller, both speech adapters and the
// grace timer without waiting for anything.
func (c *Controller) stopBackgroundLocked() {
	c.poller.Stop()
	c.in.Stop()
	c.out.Stop()
	c.partial = ""
	if c.stopGrace != nil {
		c.stopGrace()
		c.stopGrace = nil
	}
}

func (c *Controller) startPollerLocked() {
	epoch := c.epoch
	c.poller.Start(c.ctx, poller.Handler{
		Sample:   func(st ports.Status) { c.applySample(epoch, st) },
		Complete: func() { c.onCompleteTrigger(epoch, "poller") },
	})
}

func (c *Controller) applySample(epoch uint64, st ports.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch || c.closed || c.sess.Status != model.StatusInProgress {
		staleResults.WithLabelValues("poll").Inc()
		return
	}
	remaining := max(st.TimeRemaining, 0)
	if remaining < c.sess.TimeRemaining {
		c.sess.TimeRemaining = remaining
	}
	if st.Progress > c.sess.Progress {
		c.sess.Progress = st.Progress
	}
}

// onCompleteTrigger feeds a poller or grace-timer completion intent into
// Complete on a tracked worker.
func (c *Controller) onCompleteTrigger(epoch uint64, source string) {
	c.mu.Lock()
	current := epoch == c.epoch && !c.closed
	c.mu.Unlock()
	if !current {
		staleResults.WithLabelValues(source).Inc()
		return
	}
	c.workers.Go(func() {
		if _, err := c.Complete(c.ctx); err != nil {
			c.logger.Warn().Err(err).Str("source", source).Str(log.FieldEvent, "session.auto_complete_failed").
				Msg("automatic completion failed")
		}
	})
}

func (c *Controller) scheduleGraceLocked() {
	if c.stopGrace != nil {
		return
	}
	epoch := c.epoch
	c.stopGrace = c.deps.AfterFunc(c.opts.EndGrace, func() {
		c.mu.Lock()
		if epoch == c.epoch {
			c.stopGrace = nil
		}
		c.mu.Unlock()
		c.onCompleteTrigger(epoch, "grace")
	})
}

func (c *Controller) speakLocked(text string) {
	if c.mode != model.ModeVoice || !c.out.Supported() {
		return
	}
	epoch := c.epoch
	err := c.out.Speak(c.ctx, text, func() {
		c.mu.Lock()
		current := epoch == c.epoch
		c.mu.Unlock()
		if current {
			c.logger.Debug().Str(log.FieldEvent, "speech.finished").Msg("utterance finished")
		}
	})
	if err != nil {
		c.logger.Debug().Err(err).Str(log.FieldEvent, "speech.failed").Msg("could not speak evaluator turn")
	}
}

func (c *Controller) speakLastEvaluatorTurnLocked() {
	if t, ok := c.convo.Last(model.RoleEvaluator); ok {
		c.speakLocked(t.Content)
	}
}

func (c *Controller) forceTextLocked() {
	c.forcedText = true
	c.mode = model.ModeText
	c.in.Stop()
	c.partial = ""
	if c.notice == "" {
		c.notice = unsupportedNotice
		c.logger.Info().Str(log.FieldEvent, "speech.forced_text").Str(log.FieldMode, string(model.ModeText)).
			Msg("speech recognition unavailable, switching to text input")
	}
}

func (c *Controller) listenHandler(epoch uint64) speech.InputHandler {
	return speech.InputHandler{
		Partial: func(text string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if epoch == c.epoch && !c.closed {
				c.partial = text
			}
		},
		Final: func(text string) {
			c.mu.Lock()
			current := epoch == c.epoch && !c.closed
			if current {
				c.partial = ""
			}
			c.mu.Unlock()
			if !current {
				staleResults.WithLabelValues("transcript").Inc()
				return
			}
			c.workers.Go(func() {
				if err := c.SubmitTurn(c.ctx, text); err != nil {
					c.logger.Debug().Err(err).Str(log.FieldEvent, "turn.voice_failed").Msg("voice turn not delivered")
				}
			})
		},
		End: func(err error) {
			if err != nil {
				c.logger.Debug().Err(err).Str(log.FieldEvent, "speech.recognition_error").Msg("recognition ended with error")
			}
			c.mu.Lock()
			if epoch == c.epoch {
				c.partial = ""
			}
			c.mu.Unlock()
		},
	}
}
