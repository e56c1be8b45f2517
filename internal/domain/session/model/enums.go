// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// Status is the lifecycle state of a practice session.
// Only the session controller writes it.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusPaused     Status = "PAUSED"
	StatusCompleted  Status = "COMPLETED"
)

// Statuses lists every lifecycle state in declaration order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusPaused, StatusCompleted}

// IsTerminal returns true if the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleCandidate Role = "CANDIDATE"
	RoleEvaluator Role = "EVALUATOR"
)

// Kind distinguishes the session flavours the evaluator knows about.
type Kind string

const (
	KindInterview Kind = "INTERVIEW"
	KindAptitude  Kind = "APTITUDE"
)

// InputMode selects how the candidate answers.
type InputMode string

const (
	ModeVoice InputMode = "voice"
	ModeText  InputMode = "text"
)

// Valid reports whether m is a known input mode.
func (m InputMode) Valid() bool {
	return m == ModeVoice || m == ModeText
}

// ReasonCode is a compact, typed failure/decision signal.
// Keep these stable: metrics + client UX depend on them.
type ReasonCode string

const (
	RNone                  ReasonCode = "R_NONE"
	RUnknown               ReasonCode = "R_UNKNOWN"
	RBadRequest            ReasonCode = "R_BAD_REQUEST"
	RNotFound              ReasonCode = "R_NOT_FOUND"
	RInvalidTransition     ReasonCode = "R_INVALID_TRANSITION"
	RTurnInFlight          ReasonCode = "R_TURN_IN_FLIGHT"
	RNetworkFailure        ReasonCode = "R_NETWORK_FAILURE"
	RUnsupportedCapability ReasonCode = "R_UNSUPPORTED_CAPABILITY"
	RSessionClosed         ReasonCode = "R_SESSION_CLOSED"
	RCancelled             ReasonCode = "R_CANCELLED"
)

// Retryable reports whether the presentation layer should offer a retry
// action for a failure with this reason.
func Retryable(r ReasonCode) bool {
	switch r {
	case RTurnInFlight, RNetworkFailure, RCancelled:
		return true
	}
	return false
}
