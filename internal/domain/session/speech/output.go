// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ManuGH/interviewd/internal/domain/session/ports"
)

// OutputOptions configures utterances.
type OutputOptions struct {
	Lang string
	Rate float64
}

// Output speaks at most one utterance at a time. Speak replaces the current
// utterance, it never queues.
type Output struct {
	synth ports.Synthesizer
	arb   *Arbiter
	opts  OutputOptions

	mu       sync.Mutex
	gen      uint64
	speaking bool
	cancel   func()
	token    uint64
}

// NewOutput wraps synth. A nil synth behaves as unsupported.
func NewOutput(synth ports.Synthesizer, arb *Arbiter, opts OutputOptions) *Output {
	if opts.Lang == "" {
		opts.Lang = "en-US"
	}
	if opts.Rate <= 0 {
		opts.Rate = 0.9
	}
	if arb == nil {
		arb = NewArbiter()
	}
	return &Output{synth: synth, arb: arb, opts: opts}
}

// Supported reports whether synthesis is available.
func (o *Output) Supported() bool {
	return o.synth != nil && o.synth.Supported()
}

// Speaking reports whether an utterance is playing.
func (o *Output) Speaking() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.speaking
}

// Speak cancels any current utterance and starts text. done runs once when
// this utterance finishes on its own; it never runs for an utterance that
// was stopped or replaced.
func (o *Output) Speak(ctx context.Context, text string, done func()) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !o.Supported() {
		return fmt.Errorf("speech output: %w", ports.ErrUnsupported)
	}

	o.mu.Lock()
	o.gen++
	gen := o.gen
	prevCancel, prevToken := o.cancel, o.token
	o.cancel = nil
	o.speaking = true
	o.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}
	o.arb.Release(prevToken)
	token := o.arb.Acquire(Speaker, func() { o.stopGen(gen) })

	cancel, err := o.synth.Speak(ctx, ports.Utterance{Text: text, Lang: o.opts.Lang, Rate: o.opts.Rate}, func() {
		if o.finish(gen) && done != nil {
			done()
		}
	})

	o.mu.Lock()
	if err != nil {
		if o.gen == gen {
			o.speaking = false
		}
		o.mu.Unlock()
		o.arb.Release(token)
		return fmt.Errorf("speech output: %w", err)
	}
	if o.gen != gen || !o.speaking {
		// stopped or finished while the platform call was in progress
		o.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		o.arb.Release(token)
		return nil
	}
	o.cancel = cancel
	o.token = token
	o.mu.Unlock()
	return nil
}

// finish handles the platform completion callback for gen.
func (o *Output) finish(gen uint64) bool {
	o.mu.Lock()
	if o.gen != gen || !o.speaking {
		o.mu.Unlock()
		return false
	}
	o.speaking = false
	o.cancel = nil
	token := o.token
	o.mu.Unlock()
	o.arb.Release(token)
	return true
}

// Stop cancels the current utterance. Safe to call at any time.
func (o *Output) Stop() {
	o.mu.Lock()
	o.gen++
	o.stopLocked()
}

func (o *Output) stopGen(gen uint64) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.gen++
	o.stopLocked()
}

// stopLocked releases o.mu.
func (o *Output) stopLocked() {
	cancel, token := o.cancel, o.token
	o.cancel = nil
	o.speaking = false
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.arb.Release(token)
}
