// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads interviewd configuration.
//
// Precedence is ENV > YAML file > defaults. Environment variables carry the
// INTERVIEWD_ prefix, nested sections add their own (INTERVIEWD_EVALUATOR_BASE_URL).
package config

import "time"

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "INTERVIEWD_"

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	LogLevel   string `yaml:"logLevel" env:"LOG_LEVEL"`
	LogService string `yaml:"logService" env:"LOG_SERVICE"`
	ListenAddr string `yaml:"listenAddr" env:"LISTEN_ADDR"`

	Evaluator EvaluatorConfig `yaml:"evaluator" envPrefix:"EVALUATOR_"`
	Session   SessionConfig   `yaml:"session" envPrefix:"SESSION_"`
	Cache     CacheConfig     `yaml:"cache" envPrefix:"CACHE_"`
	Archive   ArchiveConfig   `yaml:"archive" envPrefix:"ARCHIVE_"`
	API       APIConfig       `yaml:"api" envPrefix:"API_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// EvaluatorConfig addresses the remote evaluator service.
type EvaluatorConfig struct {
	BaseURL          string        `yaml:"baseURL" env:"BASE_URL"`
	Token            string        `yaml:"token" env:"TOKEN"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries       int           `yaml:"maxRetries" env:"MAX_RETRIES"`
	Backoff          time.Duration `yaml:"backoff" env:"BACKOFF"`
	MaxBackoff       time.Duration `yaml:"maxBackoff" env:"MAX_BACKOFF"`
	RateLimit        float64       `yaml:"rateLimit" env:"RATE_LIMIT"`
	RateBurst        int           `yaml:"rateBurst" env:"RATE_BURST"`
	BreakerThreshold int           `yaml:"breakerThreshold" env:"BREAKER_THRESHOLD"`
	BreakerReset     time.Duration `yaml:"breakerReset" env:"BREAKER_RESET"`
}

// SessionConfig holds defaults applied to newly created sessions.
type SessionConfig struct {
	PollInterval    time.Duration `yaml:"pollInterval" env:"POLL_INTERVAL"`
	EndGrace        time.Duration `yaml:"endGrace" env:"END_GRACE"`
	TurnTimeout     time.Duration `yaml:"turnTimeout" env:"TURN_TIMEOUT"`
	CompleteTimeout time.Duration `yaml:"completeTimeout" env:"COMPLETE_TIMEOUT"`
	ToggleDebounce  time.Duration `yaml:"toggleDebounce" env:"TOGGLE_DEBOUNCE"`
	Language        string        `yaml:"language" env:"LANGUAGE"`
	SpeechRate      float64       `yaml:"speechRate" env:"SPEECH_RATE"`
	DefaultMode     string        `yaml:"defaultMode" env:"DEFAULT_MODE"`
}

// CacheConfig selects the score card cache.
type CacheConfig struct {
	Backend       string        `yaml:"backend" env:"BACKEND"`
	RedisAddr     string        `yaml:"redisAddr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redisPassword" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redisDB" env:"REDIS_DB"`
	TTL           time.Duration `yaml:"ttl" env:"TTL"`
}

// ArchiveConfig selects where completed sessions are kept.
type ArchiveConfig struct {
	Backend string `yaml:"backend" env:"BACKEND"`
	Path    string `yaml:"path" env:"PATH"`
}

// APIConfig tunes the HTTP surface.
type APIConfig struct {
	RateLimit      int           `yaml:"rateLimit" env:"RATE_LIMIT"`
	RateWindow     time.Duration `yaml:"rateWindow" env:"RATE_WINDOW"`
	AllowedOrigins []string      `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	Exporter     string  `yaml:"exporter" env:"EXPORTER"`
	Endpoint     string  `yaml:"endpoint" env:"ENDPOINT"`
	SamplingRate float64 `yaml:"samplingRate" env:"SAMPLING_RATE"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "interviewd",
		ListenAddr: ":8080",
		Evaluator: EvaluatorConfig{
			BaseURL:          "http://localhost:8000",
			Timeout:          20 * time.Second,
			MaxRetries:       2,
			Backoff:          250 * time.Millisecond,
			MaxBackoff:       3 * time.Second,
			RateLimit:        5,
			RateBurst:        10,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Session: SessionConfig{
			PollInterval:    30 * time.Second,
			EndGrace:        2 * time.Second,
			TurnTimeout:     30 * time.Second,
			CompleteTimeout: 60 * time.Second,
			ToggleDebounce:  300 * time.Millisecond,
			Language:        "en-US",
			SpeechRate:      0.9,
			DefaultMode:     "voice",
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       24 * time.Hour,
		},
		Archive: ArchiveConfig{
			Backend: "sqlite",
			Path:    "data/archive.db",
		},
		API: APIConfig{
			RateLimit:  120,
			RateWindow: time.Minute,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// Redacted returns a copy with secrets masked, safe to log or print.
func (c AppConfig) Redacted() AppConfig {
	out := c
	if out.Evaluator.Token != "" {
		out.Evaluator.Token = "***"
	}
	if out.Cache.RedisPassword != "" {
		out.Cache.RedisPassword = "***"
	}
	out.API.AllowedOrigins = append([]string(nil), c.API.AllowedOrigins...)
	return out
}
