// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

// EventKind is an operation requested against a session.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvStart
	EvSubmitTurn
	EvPause
	EvComplete
	EvToggleListening
	EvSetMode
)

// Events lists every known operation.
var Events = []EventKind{EvStart, EvSubmitTurn, EvPause, EvComplete, EvToggleListening, EvSetMode}

func (e EventKind) String() string {
	switch e {
	case EvStart:
		return "start"
	case EvSubmitTurn:
		return "submit_turn"
	case EvPause:
		return "pause"
	case EvComplete:
		return "complete"
	case EvToggleListening:
		return "toggle_listening"
	case EvSetMode:
		return "set_mode"
	default:
		return "unknown"
	}
}
