// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Session attributes
	SessionIDKey     = "session.id"
	SessionStatusKey = "session.status"
	SessionEventKey  = "session.event"
	SessionEpochKey  = "session.epoch"

	// Evaluator attributes
	EvaluatorOperationKey = "evaluator.operation"
	EvaluatorAttemptKey   = "evaluator.attempt"
	EvaluatorRetryKey     = "evaluator.retry"

	// Error attributes
	ErrorKey       = "error"
	ErrorReasonKey = "error.reason"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes describes a controller operation. Empty values are omitted.
func SessionAttributes(sessionID, status, event string, epoch uint64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, sessionID))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(SessionStatusKey, status))
	}
	if event != "" {
		attrs = append(attrs, attribute.String(SessionEventKey, event))
	}
	attrs = append(attrs, attribute.Int64(SessionEpochKey, int64(epoch))) // #nosec G115 -- epoch counter
	return attrs
}

// EvaluatorAttributes describes one logical evaluator call.
func EvaluatorAttributes(operation, method, route string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EvaluatorOperationKey, operation),
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
	}
}

// AttemptAttributes describes one attempt of a (possibly retried) call.
func AttemptAttributes(attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(EvaluatorAttemptKey, attempt),
		attribute.Bool(EvaluatorRetryKey, attempt > 1),
	}
}

// ErrorAttributes marks a span as failed with a stable reason code.
func ErrorAttributes(reason string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorReasonKey, reason),
	}
}
