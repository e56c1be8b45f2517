// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/interviewd/internal/domain/session/lifecycle"
)

var turnDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "interviewd_turn_roundtrip_seconds",
		Help:    "Evaluator turn round-trip latency by outcome reason.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	},
	[]string{"reason"},
)

func observeTurn(err error, d time.Duration) {
	reason := "ok"
	if err != nil {
		reason = string(lifecycle.ReasonOf(err))
	}
	turnDuration.WithLabelValues(reason).Observe(d.Seconds())
}
