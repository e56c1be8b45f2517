// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// VerifyMode selects the integrity pragma.
type VerifyMode string

const (
	VerifyQuick VerifyMode = "quick" // PRAGMA quick_check
	VerifyFull  VerifyMode = "full"  // PRAGMA integrity_check, also checks index content
)

// ParseVerifyMode accepts "quick" or "full".
func ParseVerifyMode(s string) (VerifyMode, error) {
	switch m := VerifyMode(strings.ToLower(strings.TrimSpace(s))); m {
	case VerifyQuick, VerifyFull:
		return m, nil
	default:
		return "", fmt.Errorf("sqlite: unknown verify mode %q (quick or full)", s)
	}
}

func (m VerifyMode) pragma() string {
	if m == VerifyFull {
		return "PRAGMA integrity_check"
	}
	return "PRAGMA quick_check"
}

// VerifyIntegrity opens path read-only and runs the pragma for mode.
// A healthy database yields nil problems; otherwise the diagnostic rows are returned.
func VerifyIntegrity(ctx context.Context, path string, mode VerifyMode) ([]string, error) {
	db, err := sql.Open("sqlite", dsn(path, true, defaultVerifyBusyTimeoutMs))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s for verification: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, mode.pragma())
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s check: %w", mode, err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s check row: %w", mode, err)
		}
		problems = append(problems, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %s check rows: %w", mode, err)
	}

	switch {
	case len(problems) == 0:
		return []string{"integrity check returned no rows"}, nil
	case len(problems) == 1 && strings.EqualFold(problems[0], "ok"):
		return nil, nil
	default:
		return problems, nil
	}
}
