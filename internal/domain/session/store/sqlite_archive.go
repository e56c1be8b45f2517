// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/persistence/sqlite"
)

const schemaVersion = 1

// SqliteArchive implements Archive using SQLite.
type SqliteArchive struct {
	DB *sql.DB
}

// NewSqliteArchive opens the archive database and migrates it.
func NewSqliteArchive(dbPath string) (*SqliteArchive, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &SqliteArchive{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: migration failed: %w", err)
	}
	return s, nil
}

func (s *SqliteArchive) Close() error {
	return s.DB.Close()
}

func (s *SqliteArchive) migrate() error {
	var currentVersion int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS archived_sessions (
		session_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		duration_budget REAL NOT NULL,
		turn_count INTEGER NOT NULL,
		progress INTEGER NOT NULL,
		scorecard_json TEXT NOT NULL,
		overall REAL NOT NULL,
		created_at_ms INTEGER NOT NULL,
		started_at_ms INTEGER,
		completed_at_ms INTEGER NOT NULL,
		archived_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_archived_completed ON archived_sessions(completed_at_ms DESC);

	CREATE TABLE IF NOT EXISTS archived_turns (
		session_id TEXT NOT NULL REFERENCES archived_sessions(session_id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		occurred_at_ns INTEGER NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func toMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

func (s *SqliteArchive) Put(ctx context.Context, rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	sess := rec.Session
	card, err := json.Marshal(sess.ScoreCard)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO archived_sessions (
			session_id, kind, duration_budget, turn_count, progress, scorecard_json, overall,
			created_at_ms, started_at_ms, completed_at_ms, archived_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			kind = excluded.kind,
			duration_budget = excluded.duration_budget,
			turn_count = excluded.turn_count,
			progress = excluded.progress,
			scorecard_json = excluded.scorecard_json,
			overall = excluded.overall,
			created_at_ms = excluded.created_at_ms,
			started_at_ms = excluded.started_at_ms,
			completed_at_ms = excluded.completed_at_ms,
			archived_at_ms = excluded.archived_at_ms`,
		sess.ID, string(sess.Kind), sess.DurationBudget, sess.TurnCount, sess.Progress, string(card), sess.ScoreCard.Overall,
		sess.CreatedAt.UnixMilli(), toMillis(sess.StartedAt), sess.CompletedAt.UnixMilli(), rec.ArchivedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("archive: upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM archived_turns WHERE session_id = ?", sess.ID); err != nil {
		return fmt.Errorf("archive: clear turns: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO archived_turns (session_id, seq, role, content, occurred_at_ns) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, turn := range sess.Conversation {
		if _, err := stmt.ExecContext(ctx, sess.ID, i, string(turn.Role), turn.Content, turn.OccurredAt.UnixNano()); err != nil {
			return fmt.Errorf("archive: insert turn %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (s *SqliteArchive) Get(ctx context.Context, id string) (Record, error) {
	var (
		rec                 Record
		kind, card          string
		created, completed  int64
		archived            int64
		started             sql.NullInt64
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT kind, duration_budget, turn_count, progress, scorecard_json,
			created_at_ms, started_at_ms, completed_at_ms, archived_at_ms
		FROM archived_sessions WHERE session_id = ?`, id).Scan(
		&kind, &rec.Session.DurationBudget, &rec.Session.TurnCount, &rec.Session.Progress, &card,
		&created, &started, &completed, &archived,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	var sc model.ScoreCard
	if err := json.Unmarshal([]byte(card), &sc); err != nil {
		return Record{}, fmt.Errorf("archive: decode score card: %w", err)
	}
	rec.Session.ID = id
	rec.Session.Kind = model.Kind(kind)
	rec.Session.Status = model.StatusCompleted
	rec.Session.ScoreCard = &sc
	rec.Session.CreatedAt = time.UnixMilli(created).UTC()
	rec.Session.StartedAt = fromMillis(started)
	rec.Session.CompletedAt = time.UnixMilli(completed).UTC()
	rec.ArchivedAt = time.UnixMilli(archived).UTC()

	rows, err := s.DB.QueryContext(ctx, "SELECT role, content, occurred_at_ns FROM archived_turns WHERE session_id = ? ORDER BY seq", id)
	if err != nil {
		return Record{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			role, content string
			at            int64
		)
		if err := rows.Scan(&role, &content, &at); err != nil {
			return Record{}, err
		}
		rec.Session.Conversation = append(rec.Session.Conversation, model.Turn{
			Role:       model.Role(role),
			Content:    content,
			OccurredAt: time.Unix(0, at).UTC(),
		})
	}
	return rec, rows.Err()
}

func (s *SqliteArchive) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT session_id, kind, overall, turn_count, completed_at_ms
		FROM archived_sessions
		ORDER BY completed_at_ms DESC, session_id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			kind      string
			completed int64
		)
		if err := rows.Scan(&sum.ID, &kind, &sum.Overall, &sum.TurnCount, &completed); err != nil {
			return nil, err
		}
		sum.Kind = model.Kind(kind)
		sum.CompletedAt = time.UnixMilli(completed).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}
