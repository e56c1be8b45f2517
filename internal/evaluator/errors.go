// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package evaluator

import (
	"fmt"
	"net/http"

	"github.com/ManuGH/interviewd/internal/domain/session/ports"
)

// Error wraps a ports sentinel with the request context it occurred in.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // lower-level cause (e.g. net.Error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("evaluator: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Sentinel, e.Err}
	}
	return []error{e.Sentinel}
}

// classifyStatus maps an HTTP status to a ports sentinel (nil for 2xx).
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return ports.ErrNotFound
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout:
		return ports.ErrUnavailable
	case status >= 500:
		return ports.ErrUnavailable
	default:
		return ports.ErrRejected
	}
}
