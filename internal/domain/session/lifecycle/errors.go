// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"errors"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

var (
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrTurnInFlight          = errors.New("turn in flight")
	ErrNetworkFailure        = errors.New("network failure")
	ErrUnsupportedCapability = errors.New("unsupported capability")
	ErrSessionClosed         = errors.New("session closed")
	ErrBadRequest            = errors.New("bad request")
	ErrSessionNotFound       = errors.New("session not found")
	ErrCanceled              = errors.New("operation canceled")
	ErrUnknown               = errors.New("unknown session error")
)

// ReasonErrorClass maps a reason code to the sentinel callers match with errors.Is.
func ReasonErrorClass(reason model.ReasonCode) error {
	switch reason {
	case model.RInvalidTransition:
		return ErrInvalidTransition
	case model.RTurnInFlight:
		return ErrTurnInFlight
	case model.RNetworkFailure:
		return ErrNetworkFailure
	case model.RUnsupportedCapability:
		return ErrUnsupportedCapability
	case model.RSessionClosed:
		return ErrSessionClosed
	case model.RBadRequest:
		return ErrBadRequest
	case model.RNotFound:
		return ErrSessionNotFound
	case model.RCancelled:
		return ErrCanceled
	case model.RNone:
		return nil
	default:
		return ErrUnknown
	}
}
