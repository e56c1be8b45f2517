// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/interviewd/internal/domain/session/model"

// Transition is a single allowed edge in the lifecycle state machine.
type Transition struct {
	From  model.Status
	To    model.Status
	Event EventKind
}

var transitionsTable = []Transition{
	{From: model.StatusNotStarted, To: model.StatusInProgress, Event: EvStart},
	{From: model.StatusPaused, To: model.StatusInProgress, Event: EvStart},

	{From: model.StatusInProgress, To: model.StatusPaused, Event: EvPause},

	{From: model.StatusInProgress, To: model.StatusCompleted, Event: EvComplete},
	{From: model.StatusPaused, To: model.StatusCompleted, Event: EvComplete},
}

// TransitionFor returns the allowed transition for a given state+event.
func TransitionFor(from model.Status, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}

func noEdgeMessage(from model.Status, ev EventKind) string {
	return "lifecycle: no transition from " + string(from) + " on " + ev.String()
}
