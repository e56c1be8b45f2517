// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ManuGH/interviewd/internal/domain/session/lifecycle"
	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
)

var legalMoves = map[model.Status][]model.Status{
	model.StatusNotStarted: {model.StatusNotStarted, model.StatusInProgress},
	model.StatusInProgress: {model.StatusInProgress, model.StatusPaused, model.StatusCompleted},
	model.StatusPaused:     {model.StatusPaused, model.StatusInProgress, model.StatusCompleted},
	model.StatusCompleted:  {model.StatusCompleted},
}

// Random operation sequences never break the session invariants, and every
// rejected operation carries a stable reason.
func TestRandomOperationSequencesKeepInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness()
		h.opts.ToggleDebounce = -1
		c := New(model.Session{
			ID:             "prop",
			Kind:           model.KindInterview,
			Status:         model.StatusNotStarted,
			DurationBudget: 30,
			TimeRemaining:  30,
		}, h.deps, h.opts)
		c.AttachSpeech(h.rec, h.synth)
		defer func() { require.NoError(rt, c.Close(context.Background())) }()

		ctx := context.Background()
		ops := rapid.SliceOfN(rapid.SampledFrom([]string{
			"start", "turn", "turn_fail", "pause", "complete", "complete_fail", "toggle", "text", "voice",
		}), 1, 25).Draw(rt, "ops")

		prevRemaining := c.Snapshot().TimeRemaining
		for _, op := range ops {
			before := c.Snapshot()
			var err error
			switch op {
			case "start":
				err = c.Start(ctx)
			case "turn":
				err = c.SubmitTurn(ctx, "answer")
			case "turn_fail":
				h.ev.SetTurnErr(ports.ErrUnavailable)
				err = c.SubmitTurn(ctx, "answer")
				h.ev.SetTurnErr(nil)
			case "pause":
				err = c.Pause(ctx)
			case "complete":
				_, err = c.Complete(ctx)
			case "complete_fail":
				h.ev.SetCompleteErr(ports.ErrUnavailable)
				_, err = c.Complete(ctx)
				h.ev.SetCompleteErr(nil)
			case "toggle":
				err = c.ToggleListening(ctx)
			case "text":
				err = c.SetInputMode(model.ModeText)
			case "voice":
				err = c.SetInputMode(model.ModeVoice)
			}

			after := c.Snapshot()
			assertInvariants(rt, after)
			require.Contains(rt, legalMoves[before.Status], after.Status, "%s: %s -> %s", op, before.Status, after.Status)
			require.GreaterOrEqual(rt, after.TurnCount, before.TurnCount)
			require.False(rt, after.TurnInFlight)
			require.False(rt, after.Completing)

			if err != nil {
				reason := lifecycle.ReasonOf(err)
				require.NotEqual(rt, model.RUnknown, reason, "%s: %v", op, err)
				require.True(rt, errors.Is(err, lifecycle.ReasonErrorClass(reason)))
				require.Equal(rt, before.Status, after.Status, "%s failed but changed status", op)
				require.Equal(rt, before.TurnCount, after.TurnCount, "%s failed but appended turns", op)
			}
			if before.Status == model.StatusCompleted {
				require.Equal(rt, before.ScoreCard, after.ScoreCard)
			}
			if after.Status == model.StatusInProgress && before.Status == model.StatusInProgress {
				require.LessOrEqual(rt, after.TimeRemaining, prevRemaining)
			}
			prevRemaining = after.TimeRemaining
		}
	})
}
