package clean

import (
	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

func Rename(s *model.Session, id string) model.Session {
	s.ID = id
	s.TurnCount = len(s.Conversation)
	return model.Session{ID: id, Kind: model.KindInterview}
}
