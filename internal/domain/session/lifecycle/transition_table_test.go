// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"testing"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/stretchr/testify/require"
)

var statusEvents = map[EventKind]bool{
	EvStart:    true,
	EvPause:    true,
	EvComplete: true,
}

func TestTransitionTable_Coverage(t *testing.T) {
	edges := map[model.Status]map[EventKind]struct{}{}
	for _, tr := range transitionsTable {
		if _, ok := edges[tr.From]; !ok {
			edges[tr.From] = map[EventKind]struct{}{}
		}
		if _, exists := edges[tr.From][tr.Event]; exists {
			t.Fatalf("duplicate transition: %s + %v", tr.From, tr.Event)
		}
		edges[tr.From][tr.Event] = struct{}{}
		require.False(t, tr.From.IsTerminal(), "terminal state must be absorbing: %s", tr.From)
	}

	for _, state := range model.Statuses {
		for _, ev := range Events {
			decision, ok := DecisionFor(state, ev)
			require.True(t, ok, "missing decision for %s + %v", state, ev)

			_, hasEdge := edges[state][ev]
			if hasEdge {
				require.True(t, decision.Allowed, "edge must be allowed for %s + %v", state, ev)
				require.False(t, decision.Noop, "edge must not be a noop for %s + %v", state, ev)
				continue
			}
			if statusEvents[ev] && decision.Allowed {
				require.True(t, decision.Noop, "allowed status event without edge must be a noop: %s + %v", state, ev)
			}
			if !decision.Allowed {
				require.NotEmpty(t, decision.Why, "forbidden decision needs a reason for %s + %v", state, ev)
				require.NotEqual(t, model.RNone, decision.Reason)
			}
		}
	}
}

func TestCompletedRejectsWithSessionClosed(t *testing.T) {
	for _, ev := range []EventKind{EvSubmitTurn, EvPause, EvToggleListening} {
		err := Check(model.StatusCompleted, ev)
		require.ErrorIs(t, err, ErrSessionClosed, ev.String())
	}
	require.ErrorIs(t, Check(model.StatusCompleted, EvStart), ErrInvalidTransition)
	require.NoError(t, Check(model.StatusCompleted, EvComplete))
}
