// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package evaluator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviewd_evaluator_request_total",
			Help: "Total number of evaluator HTTP request attempts",
		},
		[]string{"method", "operation", "status_class"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interviewd_evaluator_request_duration_seconds",
			Help:    "Duration of evaluator HTTP requests per attempt",
			Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 10),
		},
		[]string{"method", "operation", "status_class"},
	)
	requestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviewd_evaluator_request_retries_total",
			Help: "Number of evaluator request retries performed",
		},
		[]string{"method", "operation", "status_class"},
	)
)

func statusClass(err error, status int) string {
	if err != nil {
		return "error"
	}
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	}
	return "unknown"
}

func recordAttemptMetrics(method, op string, status int, duration time.Duration, err error, retry bool) {
	class := statusClass(err, status)
	requestTotal.WithLabelValues(method, op, class).Inc()
	requestDuration.WithLabelValues(method, op, class).Observe(duration.Seconds())
	if retry {
		requestRetries.WithLabelValues(method, op, class).Inc()
	}
}
