// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build !debug

package lifecycle

import "github.com/ManuGH/interviewd/internal/domain/session/model"

// An allowed decision without a table edge is a table bug; the session is
// left untouched.
func illegalTransition(from model.Status, ev EventKind) (Transition, error) {
	return Transition{}, NewReasonError(model.RInvalidTransition, noEdgeMessage(from, ev), nil)
}
