// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/interviewd/internal/validate"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := NewLoader("").WithEnvironment(map[string]string{}).Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_PrecedenceEnvOverFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
evaluator:
  baseURL: https://eval.internal
  maxRetries: 4
session:
  pollInterval: 10s
  speechRate: 1.2
api:
  allowedOrigins: [https://app.example]
`)
	cfg, err := NewLoader(path).WithEnvironment(map[string]string{
		"INTERVIEWD_EVALUATOR_MAX_RETRIES":   "1",
		"INTERVIEWD_SESSION_DEFAULT_MODE":    "text",
		"INTERVIEWD_API_ALLOWED_ORIGINS":     "https://a.example,https://b.example",
		"INTERVIEWD_ARCHIVE_BACKEND":         "memory",
		"INTERVIEWD_TELEMETRY_SAMPLING_RATE": "0.25",
	}).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://eval.internal", cfg.Evaluator.BaseURL)
	assert.Equal(t, 1, cfg.Evaluator.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Session.PollInterval)
	assert.InDelta(t, 1.2, cfg.Session.SpeechRate, 1e-9)
	assert.Equal(t, "text", cfg.Session.DefaultMode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "memory", cfg.Archive.Backend)
	assert.InDelta(t, 0.25, cfg.Telemetry.SamplingRate, 1e-9)
	// untouched keys keep their defaults
	assert.Equal(t, Defaults().Session.EndGrace, cfg.Session.EndGrace)
}

func TestLoad_StrictYAML(t *testing.T) {
	tests := map[string]string{
		"unknown field": "evaluator:\n  baseUrl: http://x\n",
		"two documents": "logLevel: info\n---\nlogLevel: debug\n",
		"bad duration":  "session:\n  pollInterval: soon\n",
		"wrong type":    "evaluator:\n  maxRetries: many\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, body)).WithEnvironment(map[string]string{}).Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, "")).WithEnvironment(map[string]string{}).Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_RejectsNonYAMLAndMissingFile(t *testing.T) {
	dir := t.TempDir()
	json := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(json, []byte("{}"), 0o600))

	_, err := NewLoader(json).Load()
	assert.ErrorContains(t, err, "only YAML")

	_, err = NewLoader(filepath.Join(dir, "missing.yaml")).Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_BadEnvValue(t *testing.T) {
	_, err := NewLoader("").WithEnvironment(map[string]string{
		"INTERVIEWD_SESSION_END_GRACE": "later",
	}).Load()
	assert.ErrorContains(t, err, "parse environment")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Evaluator.BaseURL = "ftp://eval"
	cfg.Session.PollInterval = 0
	cfg.Session.DefaultMode = "telepathy"
	cfg.Cache.Backend = "memcached"
	cfg.Archive.Backend = "postgres"
	cfg.Telemetry.SamplingRate = 2

	err := Validate(cfg)
	require.Error(t, err)
	var verr validate.ValidationError
	require.True(t, errors.As(err, &verr))

	fields := make([]string, 0, len(verr.Errors()))
	for _, e := range verr.Errors() {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{
		"logLevel", "evaluator.baseURL", "session.pollInterval", "session.defaultMode",
		"cache.backend", "archive.backend", "telemetry.samplingRate",
	}, fields)
}

func TestValidate_ConditionalChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Exporter = "zipkin"
	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisAddr = "nohost"
	cfg.Evaluator.Backoff = 5 * time.Second
	assert.Error(t, Validate(cfg))

	cfg = Defaults()
	cfg.Archive.Backend = "memory"
	cfg.Archive.Path = ""
	cfg.API.RateLimit = 0
	cfg.API.RateWindow = 0
	assert.NoError(t, Validate(cfg))
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Evaluator.Token = "s3cret"
	cfg.Cache.RedisPassword = "hunter2"

	red := cfg.Redacted()
	assert.Equal(t, "***", red.Evaluator.Token)
	assert.Equal(t, "***", red.Cache.RedisPassword)
	assert.Equal(t, "s3cret", cfg.Evaluator.Token)
}
