// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package evaluator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
	"github.com/ManuGH/interviewd/internal/resilience"
)

func newTestClient(base string) *Client {
	return NewClient(base, Options{
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		Backoff:    time.Millisecond,
		MaxBackoff: 5 * time.Millisecond,
		Token:      "secret",
	})
}

func TestClient_FullSessionAgainstMock(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.QuestionsPerSession = 2
	c := newTestClient(mock.URL)
	ctx := context.Background()

	created, err := c.CreateSession(ctx, ports.SessionConfig{Kind: model.KindInterview, DurationMinutes: 15})
	require.NoError(t, err)
	assert.Equal(t, 15.0, created.DurationBudget)

	start, err := c.StartSession(ctx, created.SessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, start.Opening)
	assert.Equal(t, 15.0, start.TimeRemaining)

	reply, err := c.SendTurn(ctx, created.SessionID, "I built a scheduler")
	require.NoError(t, err)
	assert.False(t, reply.ShouldEnd)
	assert.Equal(t, 1, reply.Progress)

	reply, err = c.SendTurn(ctx, created.SessionID, "It handled retries")
	require.NoError(t, err)
	assert.True(t, reply.ShouldEnd)

	st, err := c.GetStatus(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, st.Status)
	assert.Equal(t, 2, st.Progress)

	require.NoError(t, c.PauseSession(ctx, created.SessionID))
	resumed, err := c.ResumeSession(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Empty(t, resumed.Opening)

	card, err := c.CompleteSession(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 72.0, card.Overall)
	assert.Equal(t, 2, card.TotalQuestions)

	detail, err := c.GetSession(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, detail.Status)
	assert.Len(t, detail.Conversation, 5)
	require.NotNil(t, detail.ScoreCard)
}

func TestClient_RetriesIdempotentCalls(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	c := newTestClient(mock.URL)
	ctx := context.Background()

	created, err := c.CreateSession(ctx, ports.SessionConfig{DurationMinutes: 10})
	require.NoError(t, err)

	mock.FailNext("status", 2)
	_, err = c.GetStatus(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, mock.Hits("status"))
}

func TestClient_DoesNotRetryTurns(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	c := newTestClient(mock.URL)
	ctx := context.Background()

	created, err := c.CreateSession(ctx, ports.SessionConfig{DurationMinutes: 10})
	require.NoError(t, err)
	_, err = c.StartSession(ctx, created.SessionID)
	require.NoError(t, err)

	mock.FailNext("message", 1)
	_, err = c.SendTurn(ctx, created.SessionID, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUnavailable)
	assert.Equal(t, 1, mock.Hits("message"))

	var evErr *Error
	require.True(t, errors.As(err, &evErr))
	assert.Equal(t, http.StatusServiceUnavailable, evErr.Status)
	assert.Equal(t, "turn", evErr.Operation)
}

func TestClient_ErrorClassification(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	c := newTestClient(mock.URL)
	ctx := context.Background()

	_, err := c.GetStatus(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	created, err := c.CreateSession(ctx, ports.SessionConfig{DurationMinutes: 10})
	require.NoError(t, err)
	// Turn before start is a 409 from the evaluator.
	_, err = c.SendTurn(ctx, created.SessionID, "too early")
	assert.ErrorIs(t, err, ports.ErrRejected)
}

func TestClient_SendsAuthAndDecodesErrors(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.GetStatus(context.Background(), "s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUnavailable)
	assert.Equal(t, "Bearer secret", auth.Load())
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{MaxRetries: -1, BreakerThreshold: 2, BreakerReset: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.SendTurn(ctx, "s1", "x")
		require.ErrorIs(t, err, ports.ErrUnavailable)
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	_, err := c.SendTurn(ctx, "s1", "x")
	assert.ErrorIs(t, err, ports.ErrUnavailable)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")
}

func TestClient_RejectionsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{BreakerThreshold: 1})
	for i := 0; i < 3; i++ {
		err := c.PauseSession(context.Background(), "s1")
		require.ErrorIs(t, err, ports.ErrRejected)
	}
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestClient_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The handler never sees the client hang up unless the body is drained.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.SendTurn(ctx, "s1", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
