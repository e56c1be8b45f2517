// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker states exported as a one-hot gauge per component.
var breakerStates = [...]string{"closed", "half-open", "open"}

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "interviewd_circuit_breaker_state",
		Help: "Circuit breaker state per component; the active state is 1.",
	}, []string{"component", "state"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interviewd_circuit_breaker_trips_total",
		Help: "Transitions into the open state by component and cause.",
	}, []string{"component", "reason"})

	circuitBreakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interviewd_circuit_breaker_rejections_total",
		Help: "Calls short-circuited while the breaker was open or probing.",
	}, []string{"component"})
)

// SetCircuitBreakerState marks state as the active breaker state of component.
func SetCircuitBreakerState(component, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		circuitBreakerState.WithLabelValues(component, s).Set(v)
	}
}

// RecordCircuitBreakerTrip counts one transition to open.
func RecordCircuitBreakerTrip(component, reason string) {
	circuitBreakerTrips.WithLabelValues(component, reason).Inc()
}

// RecordCircuitBreakerRejection counts one call refused by the breaker.
func RecordCircuitBreakerRejection(component string) {
	circuitBreakerRejections.WithLabelValues(component).Inc()
}
