// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"time"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

// ApplyTransition mutates the session according to the transition.
func ApplyTransition(s *model.Session, tr Transition, now time.Time) {
	s.Status = tr.To
	switch tr.To {
	case model.StatusInProgress:
		if s.StartedAt.IsZero() {
			s.StartedAt = now
		}
		s.PausedAt = time.Time{}
	case model.StatusPaused:
		s.PausedAt = now
	case model.StatusCompleted:
		s.CompletedAt = now
	}
}
