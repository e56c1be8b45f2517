// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_ReloadNotifiesListeners(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n")
	loader := NewLoader(path).WithEnvironment(map[string]string{})
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\nsession:\n  endGrace: 5s\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, "debug", h.Get().LogLevel)
	got := <-ch
	assert.Equal(t, 5*time.Second, got.Session.EndGrace)
}

func TestHolder_InvalidReloadKeepsCurrent(t *testing.T) {
	path := writeConfig(t, "logLevel: warn\n")
	loader := NewLoader(path).WithEnvironment(map[string]string{})
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: shout\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, "warn", h.Get().LogLevel)
}

func TestHolder_FullListenerIsSkipped(t *testing.T) {
	loader := NewLoader("").WithEnvironment(map[string]string{})
	h := NewHolder(Defaults(), loader)
	ch := make(chan AppConfig) // unbuffered, nobody reading
	h.RegisterListener(ch)

	done := make(chan error, 1)
	go func() { done <- h.Reload(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reload blocked on listener")
	}
}

func TestHolder_WatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n")
	loader := NewLoader(path).WithEnvironment(map[string]string{})
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	h.debounce = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))

	require.NoError(t, os.WriteFile(path, []byte("logLevel: error\n"), 0o600))
	assert.Eventually(t, func() bool {
		return h.Get().LogLevel == "error"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestHolder_WatcherDisabledWithoutFile(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader(""))
	require.NoError(t, h.StartWatcher(context.Background()))
	assert.Nil(t, h.watcher)
}

func TestChangedSections(t *testing.T) {
	old := Defaults()
	newCfg := old
	newCfg.LogLevel = "debug"
	newCfg.ListenAddr = "127.0.0.1:9999"
	newCfg.Evaluator.Timeout = old.Evaluator.Timeout + time.Second

	live, restart := changedSections(old, newCfg)
	assert.Equal(t, []string{"logLevel"}, live)
	assert.Equal(t, []string{"listenAddr", "evaluator"}, restart)

	live, restart = changedSections(old, old)
	assert.Empty(t, live)
	assert.Empty(t, restart)
}
