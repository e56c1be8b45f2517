// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsErrors(t *testing.T) {
	v := New()
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())

	v.NotEmpty("name", "  ")
	v.Range("retries", 11, 0, 10)
	require.False(t, v.IsValid())

	err := v.Err()
	require.Error(t, err)
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors(), 2)
	assert.Equal(t, "name", verr.Errors()[0].Field)
	assert.Contains(t, err.Error(), "retries")
	assert.Contains(t, err.Error(), "; ")
}

func TestURL(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"https://evaluator.example/api", true},
		{"http://127.0.0.1:8000", true},
		{"", false},
		{"ftp://evaluator.example", false},
		{"/relative/only", false},
		{"http://%zz", false},
	}
	for _, tt := range tests {
		v := New()
		v.URL("baseURL", tt.in, []string{"http", "https"})
		assert.Equal(t, tt.valid, v.IsValid(), tt.in)
	}
}

func TestListenAddr(t *testing.T) {
	for addr, valid := range map[string]bool{
		":8080":         true,
		"127.0.0.1:0":   true,
		"[::1]:9000":    true,
		"localhost":     false,
		":http":         false,
		"0.0.0.0:70000": false,
		"":              false,
	} {
		v := New()
		v.ListenAddr("listenAddr", addr)
		assert.Equal(t, valid, v.IsValid(), addr)
	}
}

func TestNumericAndDurationChecks(t *testing.T) {
	v := New()
	v.FloatRange("speechRate", 0.9, 0.1, 10)
	v.PositiveDuration("pollInterval", 30*time.Second)
	v.NonNegativeDuration("endGrace", 0)
	v.NonNegative("maxRetries", 0)
	v.OneOf("backend", "sqlite", []string{"memory", "sqlite", "badger"})
	assert.True(t, v.IsValid())

	v.FloatRange("speechRate", 12, 0.1, 10)
	v.PositiveDuration("pollInterval", 0)
	v.NonNegativeDuration("endGrace", -time.Second)
	v.NonNegative("maxRetries", -1)
	v.OneOf("backend", "postgres", []string{"memory", "sqlite", "badger"})
	assert.Len(t, v.Errors(), 5)
}

func TestFileParent(t *testing.T) {
	dir := t.TempDir()

	v := New()
	v.FileParent("archive.path", "")
	v.FileParent("archive.path", filepath.Join(dir, "nested", "archive.db"))
	require.True(t, v.IsValid(), v.Err())
	info, err := os.Stat(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	v.FileParent("archive.path", filepath.Join(file, "archive.db"))
	v.FileParent("archive.path", "../escape.db")
	assert.Len(t, v.Errors(), 2)
}

func TestLanguageTag(t *testing.T) {
	for _, tag := range []string{"en-US", "de", "pt-BR", "zh-Hant-TW"} {
		v := New()
		v.LanguageTag("session.language", tag)
		assert.True(t, v.IsValid(), tag)
	}
	for _, tag := range []string{"", "   ", "english please", "123", "e"} {
		v := New()
		v.LanguageTag("session.language", tag)
		assert.False(t, v.IsValid(), "%q", tag)
	}
}

func TestLogLevel(t *testing.T) {
	for _, lvl := range []string{"trace", "debug", "info", "warn", "error"} {
		v := New()
		v.LogLevel("logLevel", lvl)
		assert.True(t, v.IsValid(), lvl)
	}
	for _, lvl := range []string{"", "loud", "fatal", "panic", "disabled"} {
		v := New()
		v.LogLevel("logLevel", lvl)
		assert.False(t, v.IsValid(), "%q", lvl)
	}
}
