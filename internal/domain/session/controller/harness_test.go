// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/poller"
	"github.com/ManuGH/interviewd/internal/domain/session/ports/testkit"
	speechkit "github.com/ManuGH/interviewd/internal/domain/session/speech/testkit"
	"github.com/ManuGH/interviewd/internal/domain/session/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type manualTicker struct {
	ch   chan time.Time
	done chan struct{}
	once sync.Once
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.once.Do(func() { close(m.done) }) }

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (f *tickerFactory) New(time.Duration) poller.Ticker {
	t := &manualTicker{ch: make(chan time.Time), done: make(chan struct{})}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

func (f *tickerFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// tick delivers one tick to the newest ticker. It reports false if that
// ticker's run is gone.
func (f *tickerFactory) tick() bool {
	f.mu.Lock()
	if len(f.tickers) == 0 {
		f.mu.Unlock()
		return false
	}
	t := f.tickers[len(f.tickers)-1]
	f.mu.Unlock()
	select {
	case t.ch <- time.Now():
		return true
	case <-t.done:
		return false
	case <-time.After(time.Second):
		return false
	}
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

type timerFactory struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *timerFactory) AfterFunc(_ time.Duration, fn func()) func() bool {
	t := &fakeTimer{fn: fn}
	f.mu.Lock()
	f.timers = append(f.timers, t)
	f.mu.Unlock()
	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

func (f *timerFactory) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// fireAll runs every timer that was not stopped.
func (f *timerFactory) fireAll() {
	f.mu.Lock()
	var due []func()
	for _, t := range f.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range due {
		fn()
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	ev      *testkit.Evaluator
	rec     *speechkit.Recognizer
	synth   *speechkit.Synthesizer
	tickers *tickerFactory
	timers  *timerFactory
	clock   *fakeClock
	archive *store.MemoryArchive
	deps    Deps
	opts    Options
}

func newHarness() *harness {
	h := &harness{
		ev: &testkit.Evaluator{
			Budget:  30,
			Opening: "Tell me about yourself.",
			Card:    model.ScoreCard{Overall: 81, Technical: 85, Communication: 78, Feedback: "well done"},
		},
		rec:     &speechkit.Recognizer{},
		synth:   &speechkit.Synthesizer{},
		tickers: &tickerFactory{},
		timers:  &timerFactory{},
		clock:   &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		archive: store.NewMemoryArchive(),
	}
	logger := zerolog.Nop()
	h.deps = Deps{
		Evaluator:      h.ev,
		Archive:        h.archive,
		ArchiveBackend: "memory",
		NewTicker:      h.tickers.New,
		AfterFunc:      h.timers.AfterFunc,
		Now:            h.clock.Now,
		Logger:         &logger,
	}
	h.opts = Options{Mode: model.ModeVoice, ToggleDebounce: 200 * time.Millisecond}
	return h
}

// controller builds a NOT_STARTED controller with speech attached.
func (h *harness) controller(t *testing.T) *Controller {
	t.Helper()
	c := New(model.Session{
		ID:             "sess-1",
		Kind:           model.KindInterview,
		Status:         model.StatusNotStarted,
		DurationBudget: 30,
		TimeRemaining:  30,
		CreatedAt:      h.clock.Now(),
	}, h.deps, h.opts)
	c.AttachSpeech(h.rec, h.synth)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, c.Close(ctx))
	})
	return c
}

// started returns a controller that is IN_PROGRESS with the opening turn.
func (h *harness) started(t *testing.T) *Controller {
	t.Helper()
	c := h.controller(t)
	require.NoError(t, c.Start(context.Background()))
	return c
}

func assertInvariants(t require.TestingT, snap model.Snapshot) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	require.Equal(t, len(snap.Conversation), snap.TurnCount)
	for i := 1; i < len(snap.Conversation); i++ {
		require.True(t, snap.Conversation[i].OccurredAt.After(snap.Conversation[i-1].OccurredAt),
			"turn %d not after turn %d", i, i-1)
	}
	require.Equal(t, snap.Status == model.StatusCompleted, snap.ScoreCard != nil)
}
