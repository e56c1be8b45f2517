// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID   = "session_id"
	FieldRequestID   = "request_id"
	FieldUtteranceID = "utterance_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldReason    = "reason"
	FieldEpoch     = "epoch"
	FieldAttempt   = "attempt"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldMode     = "mode"

	// Session progress fields
	FieldTurnCount     = "turn_count"
	FieldTimeRemaining = "time_remaining_min"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
	FieldBackend = "backend"
)
