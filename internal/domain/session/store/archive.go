// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store archives completed sessions as read-only history.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

var ErrNotFound = errors.New("archived session not found")

// Record is a completed session as archived.
type Record struct {
	Session    model.Session `json:"session"`
	ArchivedAt time.Time     `json:"archivedAt"`
}

// Summary is a list row for archived sessions.
type Summary struct {
	ID          string     `json:"id"`
	Kind        model.Kind `json:"kind"`
	Overall     float64    `json:"overall"`
	TurnCount   int        `json:"turnCount"`
	CompletedAt time.Time  `json:"completedAt"`
}

// Archive persists completed sessions. Put is an idempotent upsert.
type Archive interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, limit int) ([]Summary, error)
	Close() error
}

// OpenArchive creates an Archive based on the backend configuration.
func OpenArchive(backend, path string) (Archive, error) {
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "memory":
		return NewMemoryArchive(), nil
	case "badger":
		return OpenBadgerArchive(path)
	case "sqlite":
		return NewSqliteArchive(path)
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", backend)
	}
}

func validate(rec Record) error {
	if rec.Session.ID == "" {
		return errors.New("archive: session id is empty")
	}
	if rec.Session.Status != model.StatusCompleted || rec.Session.ScoreCard == nil {
		return fmt.Errorf("archive: session %s is not completed", rec.Session.ID)
	}
	return nil
}

func summarize(rec Record) Summary {
	return Summary{
		ID:          rec.Session.ID,
		Kind:        rec.Session.Kind,
		Overall:     rec.Session.ScoreCard.Overall,
		TurnCount:   rec.Session.TurnCount,
		CompletedAt: rec.Session.CompletedAt,
	}
}

// sortSummaries orders newest first and applies limit (<= 0 = all).
func sortSummaries(out []Summary, limit int) []Summary {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
