// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"fmt"
	"time"
)

// Turn is one entry of the conversation log.
type Turn struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ScoreCard is the final evaluation of a session. Scores are in [0,100].
type ScoreCard struct {
	Overall         float64 `json:"overall"`
	Technical       float64 `json:"technical"`
	Communication   float64 `json:"communication"`
	Confidence      float64 `json:"confidence"`
	ProblemSolving  float64 `json:"problemSolving"`
	Feedback        string  `json:"feedback"`
	Strengths       string  `json:"strengths"`
	Weaknesses      string  `json:"weaknesses"`
	Recommendations string  `json:"recommendations"`
	TotalQuestions  int     `json:"totalQuestions"`
	DurationMinutes float64 `json:"durationMinutes"`
}

// Validate checks the score ranges.
func (c ScoreCard) Validate() error {
	scores := []struct {
		name string
		v    float64
	}{
		{"overall", c.Overall},
		{"technical", c.Technical},
		{"communication", c.Communication},
		{"confidence", c.Confidence},
		{"problemSolving", c.ProblemSolving},
	}
	for _, s := range scores {
		if s.v < 0 || s.v > 100 {
			return fmt.Errorf("score %s out of range: %v", s.name, s.v)
		}
	}
	return nil
}

// Session is the aggregate root of a practice session.
type Session struct {
	ID             string     `json:"id"`
	Kind           Kind       `json:"kind"`
	Status         Status     `json:"status"`
	DurationBudget float64    `json:"durationBudget"`
	TimeRemaining  float64    `json:"timeRemaining"`
	TurnCount      int        `json:"turnCount"`
	Progress       int        `json:"progress"`
	Conversation   []Turn     `json:"conversation"`
	ScoreCard      *ScoreCard `json:"scoreCard,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	StartedAt      time.Time  `json:"startedAt,omitzero"`
	PausedAt       time.Time  `json:"pausedAt,omitzero"`
	CompletedAt    time.Time  `json:"completedAt,omitzero"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s Session) Clone() Session {
	out := s
	if s.Conversation != nil {
		out.Conversation = make([]Turn, len(s.Conversation))
		copy(out.Conversation, s.Conversation)
	}
	if s.ScoreCard != nil {
		card := *s.ScoreCard
		out.ScoreCard = &card
	}
	return out
}

// Snapshot is the immutable view of a session handed to the presentation
// layer, including controller-local flags.
type Snapshot struct {
	Session

	Mode         InputMode  `json:"mode"`
	Listening    bool       `json:"listening"`
	Speaking     bool       `json:"speaking"`
	Partial      string     `json:"partialTranscript,omitempty"`
	TurnInFlight bool       `json:"turnInFlight"`
	Completing   bool       `json:"completing"`
	RetryContent string     `json:"retryContent,omitempty"`
	LastReason   ReasonCode `json:"lastReason,omitempty"`
	Notice       string     `json:"notice,omitempty"`
	Epoch        uint64     `json:"epoch"`
}

// LastTurn returns the latest turn by role, if any.
func (s Session) LastTurn(role Role) (Turn, bool) {
	for i := len(s.Conversation) - 1; i >= 0; i-- {
		if s.Conversation[i].Role == role {
			return s.Conversation[i], true
		}
	}
	return Turn{}, false
}
