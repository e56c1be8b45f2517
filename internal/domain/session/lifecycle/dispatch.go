// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"fmt"
	"time"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

// Check returns nil when ev is permitted from status, else a reason error.
func Check(status model.Status, ev EventKind) error {
	d, ok := DecisionFor(status, ev)
	if !ok {
		return NewReasonError(model.RInvalidTransition, fmt.Sprintf("no decision for %s + %s", status, ev), nil)
	}
	if d.Allowed {
		return nil
	}
	return NewReasonError(d.Reason, fmt.Sprintf("%s + %s: %s", status, ev, d.Why), nil)
}

// Dispatch validates ev against the decision table and applies the matching
// transition to s. It is the only place that writes Session.Status.
func Dispatch(s *model.Session, ev EventKind, now time.Time) (Transition, error) {
	if err := Check(s.Status, ev); err != nil {
		return Transition{}, err
	}
	tr, ok := TransitionFor(s.Status, ev)
	if !ok {
		return illegalTransition(s.Status, ev)
	}
	ApplyTransition(s, tr, now)
	return tr, nil
}
