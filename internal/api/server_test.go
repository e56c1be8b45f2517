// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/interviewd/internal/api/middleware"
	"github.com/ManuGH/interviewd/internal/bridge"
	"github.com/ManuGH/interviewd/internal/domain/session/controller"
	"github.com/ManuGH/interviewd/internal/domain/session/store"
	"github.com/ManuGH/interviewd/internal/evaluator"
)

type testEnv struct {
	t       *testing.T
	mock    *evaluator.MockServer
	archive *store.MemoryArchive
	srv     *Server
	http    *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mock := evaluator.NewMockServer()
	mock.QuestionsPerSession = 10
	t.Cleanup(mock.Close)

	client := evaluator.NewClient(mock.URL, evaluator.Options{
		Timeout:    2 * time.Second,
		MaxRetries: 1,
		Backoff:    time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
	})
	archive := store.NewMemoryArchive()
	registry := controller.NewRegistry(controller.Deps{
		Evaluator:      client,
		Archive:        archive,
		ArchiveBackend: "memory",
	}, controller.Options{EndGrace: time.Hour, PollInterval: time.Hour})
	t.Cleanup(func() { _ = registry.Close(context.Background()) })

	srv := New(Deps{
		Registry: registry,
		Archive:  archive,
		Bridge:   bridge.Config{HandshakeTimeout: time.Second},
		Stack:    middleware.StackConfig{EnableMetrics: true},
	})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.CloseBridges()
		hs.Close()
	})
	return &testEnv{t: t, mock: mock, archive: archive, srv: srv, http: hs}
}

func (e *testEnv) do(method, path string, body any) (*http.Response, map[string]any) {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.http.URL+path, rd)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		require.NoError(e.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func (e *testEnv) create() string {
	e.t.Helper()
	resp, body := e.do(http.MethodPost, "/api/v1/sessions", map[string]any{
		"kind": "INTERVIEW", "durationMinutes": 20,
	})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode, body)
	id, _ := body["id"].(string)
	require.NotEmpty(e.t, id)
	return id
}

func conversationLen(body map[string]any) int {
	conv, _ := body["conversation"].([]any)
	return len(conv)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.create()
	base := "/api/v1/sessions/" + id

	resp, body := env.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "NOT_STARTED", body["status"])
	assert.EqualValues(t, 20, body["durationBudget"])

	resp, body = env.do(http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "IN_PROGRESS", body["status"])
	assert.Equal(t, 1, conversationLen(body))

	resp, body = env.do(http.MethodPost, base+"/turns", map[string]any{"content": "I led the migration"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, 3, conversationLen(body))
	assert.EqualValues(t, 3, body["turnCount"])

	resp, body = env.do(http.MethodPost, base+"/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "PAUSED", body["status"])

	resp, body = env.do(http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "COMPLETED", body["status"])
	assert.NotNil(t, body["scoreCard"])

	// completing twice is a no-op
	resp, _ = env.do(http.MethodPost, base+"/complete", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.mock.Hits("complete"))

	resp, body = env.do(http.MethodPost, base+"/turns", map[string]any{"content": "one more thing"})
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Equal(t, "SESSION_CLOSED", body["code"])

	require.Eventually(t, func() bool {
		_, err := env.archive.Get(context.Background(), id)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	resp, body = env.do(http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items, _ := body["items"].([]any)
	require.Len(t, items, 1)

	resp, body = env.do(http.MethodGet, "/api/v1/history/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "session")
}

func TestCreateLocationAndValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(http.MethodPost, "/api/v1/sessions", map[string]any{"kind": "APTITUDE", "durationMinutes": 10})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/api/v1/sessions/"))

	tests := map[string]any{
		"unknown kind":     map[string]any{"kind": "TRIVIA"},
		"unknown field":    map[string]any{"kind": "INTERVIEW", "color": "blue"},
		"negative minutes": map[string]any{"durationMinutes": -5},
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			resp, problem := env.do(http.MethodPost, "/api/v1/sessions", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "BAD_REQUEST", problem["code"])
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	id := env.create()
	base := "/api/v1/sessions/" + id

	resp, body := env.do(http.MethodPost, base+"/turns", map[string]any{"content": "too early"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])
	assert.Equal(t, false, body["retryable"])

	resp, body = env.do(http.MethodGet, "/api/v1/sessions/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "/api/v1/sessions/does-not-exist", body["instance"])

	resp, _ = env.do(http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(http.MethodPost, base+"/turns", map[string]any{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(http.MethodPut, base+"/mode", map[string]any{"mode": "telepathy"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)

	resp, body = env.do(http.MethodGet, "/api/v1/history/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestTurnNetworkFailureOffersRetry(t *testing.T) {
	env := newTestEnv(t)
	id := env.create()
	base := "/api/v1/sessions/" + id
	resp, _ := env.do(http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.mock.FailNext("message", 1)
	resp, body := env.do(http.MethodPost, base+"/turns", map[string]any{"content": "my answer"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode, body)
	assert.Equal(t, "NETWORK_FAILURE", body["code"])
	assert.Equal(t, true, body["retryable"])
	assert.Equal(t, "my answer", body["retryContent"])

	resp, body = env.do(http.MethodPost, base+"/turns", map[string]any{"content": "my answer"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, 3, conversationLen(body))
}

func TestSetModeAndDelete(t *testing.T) {
	env := newTestEnv(t)
	id := env.create()
	base := "/api/v1/sessions/" + id

	resp, body := env.do(http.MethodPut, base+"/mode", map[string]any{"mode": "text"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "text", body["mode"])

	resp, _ = env.do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRehydratesUnknownSessionFromEvaluator(t *testing.T) {
	env := newTestEnv(t)
	id := env.create()
	resp, _ := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Forget the controller; the next read rebuilds it from the evaluator.
	resp, _ = env.do(http.MethodDelete, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := env.do(http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "IN_PROGRESS", body["status"])
	assert.Equal(t, 1, conversationLen(body))
}

func TestOperationalEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, resp.Header.Get(middleware.HeaderRequestID))

	resp, _ = env.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env.create()
	res, err := http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(raw), "interviewd_http_request_duration_seconds")
}

func TestSpeechBridgeSpeaksOpeningAndClosesOnDelete(t *testing.T) {
	env := newTestEnv(t)
	id := env.create()

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/api/v1/sessions/" + id + "/speech"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": bridge.TypeHello, "recognition": true, "synthesis": true,
	}))
	require.Eventually(t, func() bool { return env.srv.BridgeCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, _ := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var speak bridge.ServerMessage
	for speak.Type != bridge.TypeSpeak {
		speak = bridge.ServerMessage{}
		require.NoError(t, conn.ReadJSON(&speak))
	}
	assert.NotEmpty(t, speak.Text)
	assert.NotEmpty(t, speak.ID)

	resp, _ = env.do(http.MethodDelete, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err)
	require.Eventually(t, func() bool { return env.srv.BridgeCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSpeechUpgradeForUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(http.MethodGet, "/api/v1/sessions/missing/speech", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}
