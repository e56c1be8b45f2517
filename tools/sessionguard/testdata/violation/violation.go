package violation

import (
	"time"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

func Finish(s *model.Session) {
	s.Status = model.StatusCompleted
	s.CompletedAt = time.Now()
}

func Fresh() model.Session {
	return model.Session{ID: "x", Status: model.StatusPaused}
}
