// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package completion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviewd_completions_total",
			Help: "Completion attempts by result (ok, cached, error, invalid).",
		},
		[]string{"result"},
	)

	completionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interviewd_completion_seconds",
			Help:    "Evaluator completion call latency.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)
)
