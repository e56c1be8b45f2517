// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/interviewd/internal/validate"
)

// Validate checks cfg and returns a validate.ValidationError listing every problem.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("logLevel", cfg.LogLevel)
	v.NotEmpty("logService", cfg.LogService)
	v.ListenAddr("listenAddr", cfg.ListenAddr)

	e := cfg.Evaluator
	v.URL("evaluator.baseURL", e.BaseURL, []string{"http", "https"})
	v.PositiveDuration("evaluator.timeout", e.Timeout)
	v.Range("evaluator.maxRetries", e.MaxRetries, 0, 10)
	v.NonNegativeDuration("evaluator.backoff", e.Backoff)
	v.NonNegativeDuration("evaluator.maxBackoff", e.MaxBackoff)
	if e.MaxBackoff > 0 && e.Backoff > e.MaxBackoff {
		v.AddError("evaluator.backoff", "backoff cannot exceed maxBackoff", e.Backoff)
	}
	if e.RateLimit < 0 {
		v.AddError("evaluator.rateLimit", "rate limit cannot be negative", e.RateLimit)
	}
	v.NonNegative("evaluator.rateBurst", e.RateBurst)
	v.Range("evaluator.breakerThreshold", e.BreakerThreshold, 1, 1000)
	v.PositiveDuration("evaluator.breakerReset", e.BreakerReset)

	s := cfg.Session
	v.PositiveDuration("session.pollInterval", s.PollInterval)
	v.NonNegativeDuration("session.endGrace", s.EndGrace)
	v.PositiveDuration("session.turnTimeout", s.TurnTimeout)
	v.PositiveDuration("session.completeTimeout", s.CompleteTimeout)
	v.NonNegativeDuration("session.toggleDebounce", s.ToggleDebounce)
	v.LanguageTag("session.language", s.Language)
	v.FloatRange("session.speechRate", s.SpeechRate, 0.1, 10)
	v.OneOf("session.defaultMode", s.DefaultMode, []string{"voice", "text"})

	c := cfg.Cache
	v.OneOf("cache.backend", c.Backend, []string{"memory", "redis", "none"})
	if c.Backend == "redis" {
		v.ListenAddr("cache.redisAddr", c.RedisAddr)
	}
	v.Range("cache.redisDB", c.RedisDB, 0, 15)
	v.NonNegativeDuration("cache.ttl", c.TTL)

	a := cfg.Archive
	v.OneOf("archive.backend", a.Backend, []string{"memory", "sqlite", "badger"})
	if a.Backend != "memory" {
		v.NotEmpty("archive.path", a.Path)
	}

	v.NonNegative("api.rateLimit", cfg.API.RateLimit)
	if cfg.API.RateLimit > 0 {
		v.PositiveDuration("api.rateWindow", cfg.API.RateWindow)
	}

	t := cfg.Telemetry
	if t.Enabled {
		v.OneOf("telemetry.exporter", t.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", t.Endpoint)
	}
	v.FloatRange("telemetry.samplingRate", t.SamplingRate, 0, 1)

	return v.Err()
}
