// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package middleware holds the HTTP ingress stack of the interviewd API.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HeaderRequestID carries the request correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

type StackConfig struct {
	EnableCORS            bool
	AllowedOrigins        []string
	EnableSecurityHeaders bool
	EnableMetrics         bool
	EnableLogging         bool

	// TracingService names the server spans; empty disables tracing.
	TracingService string

	// RateLimit is requests per RateWindow and client IP; 0 disables.
	RateLimit     int
	RateWindow    time.Duration
	OnRateLimited func(r *http.Request)
}

func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack installs the ingress middleware on r, outermost first:
// panic recovery, request ID, CORS, security headers, HTTP metrics, tracing,
// access log and per-IP rate limiting. Disabled stages are skipped.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Stack(cfg)...)
}

// Stack returns the enabled middleware in application order.
func Stack(cfg StackConfig) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{Recoverer, RequestID}
	add := func(on bool, mw func(http.Handler) http.Handler) {
		if on {
			mws = append(mws, mw)
		}
	}
	add(cfg.EnableCORS, CORS(cfg.AllowedOrigins))
	add(cfg.EnableSecurityHeaders, SecurityHeaders)
	add(cfg.EnableMetrics, Metrics)
	if cfg.TracingService != "" {
		mws = append(mws, OTelHTTP(cfg.TracingService))
	}
	add(cfg.EnableLogging, AccessLog)
	if cfg.RateLimit > 0 {
		mws = append(mws, RateLimit(RateLimitConfig{
			RequestLimit: cfg.RateLimit,
			WindowSize:   cfg.RateWindow,
			OnLimited:    cfg.OnRateLimited,
		}))
	}
	return mws
}
