// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

// ctxKey doubles as the log field name under which the value is emitted.
type ctxKey string

const (
	requestIDKey ctxKey = FieldRequestID
	sessionIDKey ctxKey = FieldSessionID
)

// Order in which context values are attached to a logger.
var contextFields = []ctxKey{requestIDKey, sessionIDKey}

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func valueOf(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithRequestID stores the HTTP request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// ContextWithSessionID stores the interview session ID in the context.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return withValue(ctx, sessionIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string { return valueOf(ctx, requestIDKey) }

func SessionIDFromContext(ctx context.Context) string { return valueOf(ctx, sessionIDKey) }

// WithContext returns logger with every non-empty context ID attached.
// The logger is returned unchanged when ctx carries none.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	var lc *zerolog.Context
	for _, key := range contextFields {
		v := valueOf(ctx, key)
		if v == "" {
			continue
		}
		if lc == nil {
			c := logger.With()
			lc = &c
		}
		*lc = lc.Str(string(key), v)
	}
	if lc == nil {
		return logger
	}
	return lc.Logger()
}

// WithComponentFromContext returns a logger that is annotated with the component
// name and enriched with correlation fields from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}

// FromContext returns a logger from the context, or the base logger if not present.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return L()
	}
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return L()
	}
	return l
}
