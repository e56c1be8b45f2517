// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ports

import (
	"context"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

// SessionConfig is the setup payload forwarded to the evaluator on creation.
type SessionConfig struct {
	Kind            model.Kind `json:"kind"`
	JobID           string     `json:"jobId,omitempty"`
	Topic           string     `json:"topic,omitempty"`
	Difficulty      string     `json:"difficulty,omitempty"`
	DurationMinutes float64    `json:"durationMinutes"`
}

// CreatedSession is the evaluator's answer to CreateSession.
type CreatedSession struct {
	SessionID      string  `json:"sessionId"`
	DurationBudget float64 `json:"durationBudget"`
}

// StartResult is returned by StartSession and ResumeSession.
type StartResult struct {
	// Opening is the evaluator's first question, if the session just began.
	Opening       string  `json:"opening,omitempty"`
	TimeRemaining float64 `json:"timeRemaining"`
	Progress      int     `json:"progress"`
}

// EvaluatorReply is the counterpart turn returned by SendTurn.
type EvaluatorReply struct {
	Reply     string `json:"reply"`
	ShouldEnd bool   `json:"shouldEnd"`
	Progress  int    `json:"progress"`
}

// Status is one StatusPoller sample.
type Status struct {
	TimeRemaining  float64      `json:"timeRemaining"`
	Progress       int          `json:"progress"`
	ShouldComplete bool         `json:"shouldComplete"`
	Status         model.Status `json:"status"`
}

// SessionDetail is used to rehydrate a controller for an existing session.
type SessionDetail struct {
	ID             string           `json:"id"`
	Kind           model.Kind       `json:"kind"`
	Status         model.Status     `json:"status"`
	DurationBudget float64          `json:"durationBudget"`
	TimeRemaining  float64          `json:"timeRemaining"`
	Progress       int              `json:"progress"`
	Conversation   []model.Turn     `json:"conversation"`
	ScoreCard      *model.ScoreCard `json:"scoreCard,omitempty"`
}

// Evaluator is the remote evaluation service.
type Evaluator interface {
	CreateSession(ctx context.Context, cfg SessionConfig) (CreatedSession, error)
	StartSession(ctx context.Context, id string) (StartResult, error)
	ResumeSession(ctx context.Context, id string) (StartResult, error)
	SendTurn(ctx context.Context, id, content string) (EvaluatorReply, error)
	GetStatus(ctx context.Context, id string) (Status, error)
	PauseSession(ctx context.Context, id string) error
	CompleteSession(ctx context.Context, id string) (model.ScoreCard, error)
	GetSession(ctx context.Context, id string) (SessionDetail, error)
}
