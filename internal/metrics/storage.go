// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds Prometheus collectors shared across packages.
// No session or request IDs in labels.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interviewd_cache_ops_total",
		Help: "Score card cache operations by backend, op and result.",
	}, []string{"backend", "op", "result"}) // result=hit|miss|ok|error

	archiveWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interviewd_archive_writes_total",
		Help: "Completed session archive writes by backend and result.",
	}, []string{"backend", "result"})

	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interviewd_config_reloads_total",
		Help: "Configuration hot reloads by result.",
	}, []string{"result"})
)

// RecordCacheOp counts one cache operation.
func RecordCacheOp(backend, op, result string) {
	if backend == "" {
		backend = "unknown"
	}
	cacheOpsTotal.WithLabelValues(backend, op, result).Inc()
}

// RecordArchiveWrite counts one archive write.
func RecordArchiveWrite(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	archiveWritesTotal.WithLabelValues(backend, result).Inc()
}

// RecordConfigReload counts one reload attempt.
func RecordConfigReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	configReloadsTotal.WithLabelValues(result).Inc()
}

var shutdownHookSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "interviewd_shutdown_hook_duration_seconds",
	Help:    "Duration of daemon shutdown hooks by hook and result.",
	Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15},
}, []string{"hook", "result"})

// ObserveShutdownHook records one shutdown hook run.
func ObserveShutdownHook(hook string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	shutdownHookSeconds.WithLabelValues(hook, result).Observe(d.Seconds())
}
