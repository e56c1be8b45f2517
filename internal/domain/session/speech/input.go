// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuGH/interviewd/internal/domain/session/ports"
)

// InputHandler receives transcript events and the end of a listening run.
type InputHandler struct {
	Partial func(text string)
	Final   func(text string)
	End     func(err error)
}

// Input wraps the platform recognizer. Listening holds the microphone,
// which preempts any playback.
type Input struct {
	rec  ports.Recognizer
	arb  *Arbiter
	lang string

	mu        sync.Mutex
	gen       uint64
	listening bool
	stop      func()
	token     uint64
}

// NewInput wraps rec. A nil rec behaves as unsupported.
func NewInput(rec ports.Recognizer, arb *Arbiter, lang string) *Input {
	if lang == "" {
		lang = "en-US"
	}
	if arb == nil {
		arb = NewArbiter()
	}
	return &Input{rec: rec, arb: arb, lang: lang}
}

// Supported reports whether recognition is available.
func (in *Input) Supported() bool {
	return in.rec != nil && in.rec.Supported()
}

// Listening reports whether a recognition run is active.
func (in *Input) Listening() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.listening
}

// Start begins listening. Starting while already listening is a no-op and
// returns false.
func (in *Input) Start(ctx context.Context, h InputHandler) (bool, error) {
	if !in.Supported() {
		return false, fmt.Errorf("speech input: %w", ports.ErrUnsupported)
	}

	in.mu.Lock()
	if in.listening {
		in.mu.Unlock()
		return false, nil
	}
	in.gen++
	gen := in.gen
	in.listening = true
	in.mu.Unlock()

	token := in.arb.Acquire(Microphone, func() { in.stopGen(gen) })

	stop, err := in.rec.Listen(ctx, in.lang, ports.RecognitionHandler{
		Result: func(tr ports.Transcript) {
			if !in.current(gen) {
				return
			}
			if tr.Final {
				if h.Final != nil {
					h.Final(tr.Text)
				}
				return
			}
			if h.Partial != nil {
				h.Partial(tr.Text)
			}
		},
		End: func(err error) {
			if in.end(gen) && h.End != nil {
				h.End(err)
			}
		},
	})

	in.mu.Lock()
	if err != nil {
		if in.gen == gen {
			in.listening = false
		}
		in.mu.Unlock()
		in.arb.Release(token)
		return false, fmt.Errorf("speech input: %w", err)
	}
	if in.gen != gen || !in.listening {
		in.mu.Unlock()
		if stop != nil {
			stop()
		}
		in.arb.Release(token)
		return false, nil
	}
	in.stop = stop
	in.token = token
	in.mu.Unlock()
	return true, nil
}

func (in *Input) current(gen uint64) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.gen == gen && in.listening
}

func (in *Input) end(gen uint64) bool {
	in.mu.Lock()
	if in.gen != gen || !in.listening {
		in.mu.Unlock()
		return false
	}
	in.listening = false
	in.stop = nil
	token := in.token
	in.mu.Unlock()
	in.arb.Release(token)
	return true
}

// Stop ends listening. Safe to call at any time; late callbacks from the
// stopped run are dropped.
func (in *Input) Stop() {
	in.mu.Lock()
	in.gen++
	in.stopLocked()
}

func (in *Input) stopGen(gen uint64) {
	in.mu.Lock()
	if in.gen != gen {
		in.mu.Unlock()
		return
	}
	in.gen++
	in.stopLocked()
}

// stopLocked releases in.mu.
func (in *Input) stopLocked() {
	stop, token := in.stop, in.token
	in.stop = nil
	in.listening = false
	in.mu.Unlock()
	if stop != nil {
		stop()
	}
	in.arb.Release(token)
}
