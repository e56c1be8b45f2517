// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package testkit provides scriptable speech platform fakes.
package testkit

import (
	"context"
	"sync"

	"github.com/ManuGH/interviewd/internal/domain/session/ports"
)

// Playback is one utterance handed to the fake synthesizer.
type Playback struct {
	Utterance ports.Utterance
	done      func()
	cancelled bool
}

// Synthesizer records utterances; tests finish them explicitly.
type Synthesizer struct {
	Unsupported bool

	mu        sync.Mutex
	playbacks []*Playback
}

func (s *Synthesizer) Supported() bool { return !s.Unsupported }

func (s *Synthesizer) Speak(_ context.Context, u ports.Utterance, done func()) (func(), error) {
	p := &Playback{Utterance: u, done: done}
	s.mu.Lock()
	s.playbacks = append(s.playbacks, p)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		p.cancelled = true
		s.mu.Unlock()
	}, nil
}

// Count returns the number of Speak calls.
func (s *Synthesizer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.playbacks)
}

// Texts returns the spoken texts in order.
func (s *Synthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.playbacks))
	for _, p := range s.playbacks {
		out = append(out, p.Utterance.Text)
	}
	return out
}

// Cancelled reports whether utterance i was cancelled.
func (s *Synthesizer) Cancelled(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playbacks[i].cancelled
}

// Finish fires the platform completion callback of utterance i, as a real
// platform would even after cancellation.
func (s *Synthesizer) Finish(i int) {
	s.mu.Lock()
	p := s.playbacks[i]
	s.mu.Unlock()
	if p.done != nil {
		p.done()
	}
}

// Recognizer captures the active handler so tests can emit results.
type Recognizer struct {
	Unsupported bool
	ListenErr   error

	mu       sync.Mutex
	handlers []ports.RecognitionHandler
	stops    int
}

func (r *Recognizer) Supported() bool { return !r.Unsupported }

func (r *Recognizer) Listen(_ context.Context, _ string, h ports.RecognitionHandler) (func(), error) {
	if r.ListenErr != nil {
		return nil, r.ListenErr
	}
	r.mu.Lock()
	r.handlers = append(r.handlers, h)
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.stops++
		r.mu.Unlock()
	}, nil
}

// Runs returns the number of Listen calls.
func (r *Recognizer) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// Stops returns how often a stop function was invoked.
func (r *Recognizer) Stops() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

func (r *Recognizer) handler(run int) ports.RecognitionHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[run]
}

// Emit delivers a transcript to listening run number run.
func (r *Recognizer) Emit(run int, text string, final bool) {
	h := r.handler(run)
	if h.Result != nil {
		h.Result(ports.Transcript{Text: text, Final: final})
	}
}

// End signals the platform ended listening run number run.
func (r *Recognizer) End(run int, err error) {
	h := r.handler(run)
	if h.End != nil {
		h.End(err)
	}
}
