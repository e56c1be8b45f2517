// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package speech wraps the platform recognizer and synthesizer of one
// session behind generation-checked adapters.
package speech

import "sync"

// Resource is a singly-owned audio device.
type Resource int

const (
	Microphone Resource = iota + 1
	Speaker
)

func (r Resource) String() string {
	switch r {
	case Microphone:
		return "microphone"
	case Speaker:
		return "speaker"
	}
	return "none"
}

type holder struct {
	res     Resource
	token   uint64
	preempt func()
}

// Arbiter grants exclusive use of the microphone and the speaker. Only one
// of them is held at a time: acquiring either preempts the current holder.
type Arbiter struct {
	mu    sync.Mutex
	next  uint64
	owner *holder
}

// NewArbiter returns an idle arbiter.
func NewArbiter() *Arbiter {
	return &Arbiter{}
}

// Acquire takes r and returns a release token. The previous holder's
// preempt callback runs before Acquire returns, outside the arbiter lock.
func (a *Arbiter) Acquire(r Resource, preempt func()) uint64 {
	a.mu.Lock()
	a.next++
	token := a.next
	prev := a.owner
	a.owner = &holder{res: r, token: token, preempt: preempt}
	a.mu.Unlock()

	if prev != nil && prev.preempt != nil {
		prev.preempt()
	}
	return token
}

// Release gives r back if token still owns it. Stale tokens are ignored.
func (a *Arbiter) Release(token uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owner != nil && a.owner.token == token {
		a.owner = nil
	}
}

// Holder reports the resource currently held, if any.
func (a *Arbiter) Holder() (Resource, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owner == nil {
		return 0, false
	}
	return a.owner.res, true
}
