// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/interviewd/internal/domain/session/model"

const (
	ForbiddenTerminalAbsorbing  = "terminal_absorbing"
	ForbiddenAlreadyInState     = "already_in_state"
	ForbiddenRequiresStart      = "requires_start"
	ForbiddenRequiresInProgress = "requires_in_progress"
)

// Decision records whether an operation is allowed in a state.
// Noop marks operations that are accepted but change nothing (a repeated
// complete on a finished session).
type Decision struct {
	Allowed bool
	Noop    bool
	Reason  model.ReasonCode
	Why     string
}

func allowed() Decision { return Decision{Allowed: true} }
func noop() Decision    { return Decision{Allowed: true, Noop: true} }

func forbid(why string) Decision {
	return Decision{Reason: model.RInvalidTransition, Why: why}
}

func closed() Decision {
	return Decision{Reason: model.RSessionClosed, Why: ForbiddenTerminalAbsorbing}
}

// decisionTable defines an explicit decision for every State×Event combination.
var decisionTable = map[model.Status]map[EventKind]Decision{
	model.StatusNotStarted: {
		EvStart:           allowed(),
		EvSubmitTurn:      forbid(ForbiddenRequiresStart),
		EvPause:           forbid(ForbiddenRequiresStart),
		EvComplete:        forbid(ForbiddenRequiresStart),
		EvToggleListening: forbid(ForbiddenRequiresStart),
		EvSetMode:         allowed(),
	},
	model.StatusInProgress: {
		EvStart:           forbid(ForbiddenAlreadyInState),
		EvSubmitTurn:      allowed(),
		EvPause:           allowed(),
		EvComplete:        allowed(),
		EvToggleListening: allowed(),
		EvSetMode:         allowed(),
	},
	model.StatusPaused: {
		EvStart:           allowed(),
		EvSubmitTurn:      forbid(ForbiddenRequiresInProgress),
		EvPause:           forbid(ForbiddenAlreadyInState),
		EvComplete:        allowed(),
		EvToggleListening: forbid(ForbiddenRequiresInProgress),
		EvSetMode:         allowed(),
	},
	model.StatusCompleted: {
		EvStart:           forbid(ForbiddenTerminalAbsorbing),
		EvSubmitTurn:      closed(),
		EvPause:           closed(),
		EvComplete:        noop(),
		EvToggleListening: closed(),
		EvSetMode:         closed(),
	},
}

// DecisionFor returns the explicit decision for state×event.
func DecisionFor(from model.Status, ev EventKind) (Decision, bool) {
	m, ok := decisionTable[from]
	if !ok {
		return Decision{}, false
	}
	d, ok := m[ev]
	return d, ok
}

// ForbiddenTransitionReason documents why an operation is disallowed.
func ForbiddenTransitionReason(from model.Status, ev EventKind) string {
	d, ok := DecisionFor(from, ev)
	if !ok || d.Allowed {
		return ""
	}
	return d.Why
}
