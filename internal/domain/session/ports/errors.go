// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ports

import "errors"

// Adapter-level failure classes. Implementations wrap one of these so the
// controller can classify failures without knowing the transport.
var (
	// ErrUnavailable covers transport errors, timeouts, 5xx answers and an
	// open circuit breaker.
	ErrUnavailable = errors.New("evaluator unavailable")
	// ErrRejected is a 4xx answer other than 404.
	ErrRejected = errors.New("evaluator rejected request")
	// ErrNotFound is returned when the evaluator does not know the session.
	ErrNotFound = errors.New("evaluator session not found")
	// ErrUnsupported signals a missing speech capability on the platform.
	ErrUnsupported = errors.New("capability unsupported")
)
