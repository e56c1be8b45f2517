// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/interviewd/internal/metrics"
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrCircuitOpen is returned without calling the wrapped function.
var ErrCircuitOpen = errors.New("resilience: circuit open")

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CircuitBreaker opens after threshold consecutive failures and rejects calls
// until resetTimeout has passed. Then a single probe decides whether it closes
// again or stays open for another period.
type CircuitBreaker struct {
	name         string
	threshold    int
	resetTimeout time.Duration
	clock        Clock
	isFailure    func(error) bool
	onChange     func(from, to State)

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

type Option func(*CircuitBreaker)

func WithClock(c Clock) Option {
	return func(cb *CircuitBreaker) { cb.clock = c }
}

// WithFailureClassifier reports which errors count as failures. Other errors
// are returned to the caller and leave the breaker as it was.
func WithFailureClassifier(fn func(error) bool) Option {
	return func(cb *CircuitBreaker) { cb.isFailure = fn }
}

// WithStateChange registers fn to run after every state change. It is called
// with the breaker lock held and must not call back into the breaker.
func WithStateChange(fn func(from, to State)) Option {
	return func(cb *CircuitBreaker) { cb.onChange = fn }
}

// NewCircuitBreaker defaults to 3 failures and a 30s reset period.
func NewCircuitBreaker(name string, threshold int, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		threshold:    max(threshold, 0),
		resetTimeout: resetTimeout,
		clock:        systemClock{},
		isFailure:    func(err error) bool { return err != nil },
		state:        StateClosed,
	}
	if cb.threshold == 0 {
		cb.threshold = 3
	}
	if cb.resetTimeout <= 0 {
		cb.resetTimeout = 30 * time.Second
	}
	for _, opt := range opts {
		opt(cb)
	}
	metrics.SetCircuitBreakerState(name, string(StateClosed))
	return cb
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		metrics.RecordCircuitBreakerRejection(cb.name)
		return err
	}
	err = fn()
	cb.settle(probe, err)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// admit reports whether a call may proceed and whether it is the half-open probe.
func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateClosed {
		return false, nil
	}
	if cb.state == StateOpen {
		if cb.clock.Now().Before(cb.openedAt.Add(cb.resetTimeout)) {
			return false, ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
	}
	if cb.probing {
		return false, ErrCircuitOpen
	}
	cb.probing = true
	return true, nil
}

func (cb *CircuitBreaker) settle(probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.probing = false
	}
	switch {
	case err == nil:
		cb.failures = 0
		cb.setState(StateClosed)
	case !cb.isFailure(err):
		// Not the dependency's fault; a released probe slot lets the next call retry.
	case cb.state == StateHalfOpen:
		cb.trip("half_open_failure")
	default:
		cb.failures++
		if cb.state == StateClosed && cb.failures >= cb.threshold {
			cb.trip("threshold_exceeded")
		}
	}
}

func (cb *CircuitBreaker) trip(reason string) {
	metrics.RecordCircuitBreakerTrip(cb.name, reason)
	cb.openedAt = cb.clock.Now()
	cb.setState(StateOpen)
}

// setState requires cb.mu.
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	metrics.SetCircuitBreakerState(cb.name, string(to))
	if cb.onChange != nil {
		cb.onChange(from, to)
	}
}
