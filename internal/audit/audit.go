// SPDX-License-Identifier: MIT

// Package audit provides structured audit logging for session and
// configuration changes. It follows the WHO/WHAT/WHEN pattern.
package audit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/interviewd/internal/log"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Configuration events
	EventConfigReload      EventType = "config.reload"
	EventConfigReloadError EventType = "config.reload.error"

	// Session events
	EventSessionCreate   EventType = "session.create"
	EventSessionComplete EventType = "session.complete"
	EventSessionDelete   EventType = "session.delete"

	// API access events
	EventAPIRateLimit EventType = "api.ratelimit"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	Actor      string            `json:"actor"`             // WHO: remote address or "system"
	Action     string            `json:"action"`            // WHAT: human-readable action description
	Resource   string            `json:"resource"`          // session id, endpoint or config file
	Result     string            `json:"result"`            // success, failure, denied
	RemoteAddr string            `json:"remote_addr"`       // Client IP address
	UserAgent  string            `json:"user_agent"`        // Client user agent
	RequestID  string            `json:"request_id"`        // Correlation ID
	Details    map[string]string `json:"details,omitempty"` // Additional context
}

// Logger provides audit logging functionality.
type Logger struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewLogger creates a new audit logger with a dedicated "audit" component.
func NewLogger() *Logger {
	return New(log.WithComponent("audit"))
}

// New wraps an existing zerolog logger.
func New(base zerolog.Logger) *Logger {
	return &Logger{
		logger: base.With().Str("log_type", "audit").Logger(),
		now:    time.Now,
	}
}

// Log writes an audit event to the audit log.
func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}

	logEvent := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RemoteAddr != "" {
		logEvent.Str("remote_addr", event.RemoteAddr)
	}
	if event.UserAgent != "" {
		logEvent.Str("user_agent", event.UserAgent)
	}
	if event.RequestID != "" {
		logEvent.Str(log.FieldRequestID, event.RequestID)
	}
	for key, value := range event.Details {
		logEvent.Str(key, value)
	}

	logEvent.Msg("audit event")
}

// LogFromContext fills the request id from ctx before logging.
func (l *Logger) LogFromContext(ctx context.Context, event Event) {
	if event.RequestID == "" {
		event.RequestID = log.RequestIDFromContext(ctx)
	}
	l.Log(event)
}

// LogRequest attributes the event to the client behind r.
func (l *Logger) LogRequest(r *http.Request, event Event) {
	if event.Actor == "" {
		event.Actor = r.RemoteAddr
	}
	if event.RemoteAddr == "" {
		event.RemoteAddr = r.RemoteAddr
	}
	if event.UserAgent == "" {
		event.UserAgent = r.UserAgent()
	}
	l.LogFromContext(r.Context(), event)
}

// ConfigReload logs a configuration reload event.
func (l *Logger) ConfigReload(actor, result string, details map[string]string) {
	typ := EventConfigReload
	if result != "success" {
		typ = EventConfigReloadError
	}
	l.Log(Event{
		Type:     typ,
		Actor:    actor,
		Action:   "reloaded configuration",
		Resource: "config",
		Result:   result,
		Details:  details,
	})
}

// SessionCreated logs a new practice session.
func (l *Logger) SessionCreated(r *http.Request, id, kind string, durationMinutes float64) {
	l.LogRequest(r, Event{
		Type:     EventSessionCreate,
		Action:   "created session",
		Resource: id,
		Result:   "success",
		Details: map[string]string{
			"kind":             kind,
			"duration_minutes": strconv.FormatFloat(durationMinutes, 'f', -1, 64),
		},
	})
}

// SessionCompleted logs the outcome of an explicit completion request.
func (l *Logger) SessionCompleted(r *http.Request, id string, overall float64, err error) {
	ev := Event{
		Type:     EventSessionComplete,
		Action:   "completed session",
		Resource: id,
		Result:   "success",
		Details:  map[string]string{"overall": strconv.FormatFloat(overall, 'f', 1, 64)},
	}
	if err != nil {
		ev.Result = "failure"
		ev.Details = map[string]string{"error": err.Error()}
	}
	l.LogRequest(r, ev)
}

// SessionDeleted logs removal of a session from this process.
func (l *Logger) SessionDeleted(r *http.Request, id string) {
	l.LogRequest(r, Event{
		Type:     EventSessionDelete,
		Action:   "deleted session",
		Resource: id,
		Result:   "success",
	})
}

// RateLimitExceeded logs rate limit violations.
func (l *Logger) RateLimitExceeded(r *http.Request) {
	l.LogRequest(r, Event{
		Type:     EventAPIRateLimit,
		Action:   "rate limit exceeded",
		Resource: r.URL.Path,
		Result:   "denied",
		Details:  map[string]string{"method": r.Method},
	})
}
