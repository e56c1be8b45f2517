// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interviewd_http_request_duration_seconds",
		Help:    "API request latency by route pattern, method and status class.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	httpPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interviewd_http_panics_total",
		Help: "Handler panics recovered by the API.",
	})

	bridgeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interviewd_speech_bridge_connections",
		Help: "Currently attached browser speech bridges.",
	})
)

// ObserveHTTPRequest records one API request.
func ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestDuration.WithLabelValues(route, method, statusClass(status)).Observe(d.Seconds())
}

func RecordHTTPPanic() { httpPanics.Inc() }

// BridgeAttached adjusts the attached bridge gauge.
func BridgeAttached(delta int) {
	bridgeConnections.Add(float64(delta))
}

func statusClass(status int) string {
	if status <= 0 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
