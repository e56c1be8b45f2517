// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package conversation holds the append-only turn log of a session.
package conversation

import (
	"errors"
	"strings"
	"time"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

var ErrEmptyContent = errors.New("turn content is empty")

// Log is an append-only ordered record of turns. It is not safe for
// concurrent use; the session controller serialises access.
type Log struct {
	turns []model.Turn
	now   func() time.Time
}

// New returns an empty log using now as its clock (time.Now if nil).
func New(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now}
}

// Restore seeds a log from a persisted conversation. Turns with
// non-increasing timestamps are nudged forward so ordering holds.
func Restore(turns []model.Turn, now func() time.Time) *Log {
	l := New(now)
	for _, t := range turns {
		l.appendAt(t.Role, t.Content, t.OccurredAt)
	}
	return l
}

// Append records a confirmed turn and returns it.
func (l *Log) Append(role model.Role, content string) (model.Turn, error) {
	if strings.TrimSpace(content) == "" {
		return model.Turn{}, ErrEmptyContent
	}
	return l.appendAt(role, content, l.now()), nil
}

// AppendExchange records a candidate turn and the evaluator reply that
// confirmed it, in that order.
func (l *Log) AppendExchange(candidate, reply string) ([]model.Turn, error) {
	if strings.TrimSpace(candidate) == "" {
		return nil, ErrEmptyContent
	}
	at := l.now()
	c := l.appendAt(model.RoleCandidate, candidate, at)
	if strings.TrimSpace(reply) == "" {
		return []model.Turn{c}, nil
	}
	r := l.appendAt(model.RoleEvaluator, reply, at)
	return []model.Turn{c, r}, nil
}

// OccurredAt is kept strictly increasing even if the clock stalls or steps back.
func (l *Log) appendAt(role model.Role, content string, at time.Time) model.Turn {
	if n := len(l.turns); n > 0 {
		last := l.turns[n-1].OccurredAt
		if !at.After(last) {
			at = last.Add(time.Microsecond)
		}
	}
	t := model.Turn{Role: role, Content: content, OccurredAt: at}
	l.turns = append(l.turns, t)
	return t
}

// Len returns the number of turns.
func (l *Log) Len() int { return len(l.turns) }

// Turns returns a copy of the log.
func (l *Log) Turns() []model.Turn {
	out := make([]model.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Last returns the most recent turn authored by role.
func (l *Log) Last(role model.Role) (model.Turn, bool) {
	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].Role == role {
			return l.turns[i], true
		}
	}
	return model.Turn{}, false
}
