// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build debug

package lifecycle

import "github.com/ManuGH/interviewd/internal/domain/session/model"

// Debug builds fail loudly so a decision/table mismatch surfaces in tests.
func illegalTransition(from model.Status, ev EventKind) (Transition, error) {
	panic(NewReasonError(model.RInvalidTransition, noEdgeMessage(from, ev), nil))
}
