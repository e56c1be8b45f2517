// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interviewd_session_transitions_total",
		Help: "Session state transitions",
	}, []string{"from", "to"})

	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interviewd_session_operation_errors_total",
		Help: "Rejected or failed controller operations by reason",
	}, []string{"operation", "reason"})

	staleResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interviewd_session_stale_results_total",
		Help: "Asynchronous results dropped by the epoch check",
	}, []string{"source"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interviewd_sessions_active",
		Help: "Controllers currently registered",
	})
)

func recordTransition(from, to model.Status) {
	transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func recordOpError(op string, reason model.ReasonCode) {
	operationErrors.WithLabelValues(op, string(reason)).Inc()
}
