// SPDX-License-Identifier: MIT
package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func getCounterVecValue(t *testing.T, counterVec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counterVec.WithLabelValues(labels...).Write(metric))
	return metric.GetCounter().GetValue()
}

func getHistogramCount(t *testing.T, vec *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	metric := &dto.Metric{}
	h, ok := vec.WithLabelValues(labels...).(prometheus.Histogram)
	require.True(t, ok)
	require.NoError(t, h.Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestSetCircuitBreakerStateIsOneHot(t *testing.T) {
	SetCircuitBreakerState("evaluator-test", "open")

	assert.Equal(t, 1.0, getGaugeValue(t, circuitBreakerState.WithLabelValues("evaluator-test", "open")))
	assert.Equal(t, 0.0, getGaugeValue(t, circuitBreakerState.WithLabelValues("evaluator-test", "closed")))
	assert.Equal(t, 0.0, getGaugeValue(t, circuitBreakerState.WithLabelValues("evaluator-test", "half-open")))

	SetCircuitBreakerState("evaluator-test", "closed")
	assert.Equal(t, 0.0, getGaugeValue(t, circuitBreakerState.WithLabelValues("evaluator-test", "open")))
	assert.Equal(t, 1.0, getGaugeValue(t, circuitBreakerState.WithLabelValues("evaluator-test", "closed")))
}

func TestRecordCircuitBreakerTrip(t *testing.T) {
	before := getCounterVecValue(t, circuitBreakerTrips, "trip-test", "threshold")
	RecordCircuitBreakerTrip("trip-test", "threshold")
	assert.Equal(t, before+1, getCounterVecValue(t, circuitBreakerTrips, "trip-test", "threshold"))
}

func TestObserveHTTPRequest(t *testing.T) {
	before := getHistogramCount(t, httpRequestDuration, "/test/{id}", "GET", "4xx")
	ObserveHTTPRequest("/test/{id}", "GET", 404, 5*time.Millisecond)
	assert.Equal(t, before+1, getHistogramCount(t, httpRequestDuration, "/test/{id}", "GET", "4xx"))

	before = getHistogramCount(t, httpRequestDuration, "unmatched", "POST", "unknown")
	ObserveHTTPRequest("", "POST", 0, time.Millisecond)
	assert.Equal(t, before+1, getHistogramCount(t, httpRequestDuration, "unmatched", "POST", "unknown"))
}

func TestBridgeAttached(t *testing.T) {
	before := getGaugeValue(t, bridgeConnections)
	BridgeAttached(2)
	BridgeAttached(-1)
	assert.Equal(t, before+1, getGaugeValue(t, bridgeConnections))
	BridgeAttached(-1)
}

func TestStorageCounters(t *testing.T) {
	before := getCounterVecValue(t, cacheOpsTotal, "unknown", "get", "miss")
	RecordCacheOp("", "get", "miss")
	assert.Equal(t, before+1, getCounterVecValue(t, cacheOpsTotal, "unknown", "get", "miss"))

	okBefore := getCounterVecValue(t, archiveWritesTotal, "sqlite", "ok")
	errBefore := getCounterVecValue(t, archiveWritesTotal, "sqlite", "error")
	RecordArchiveWrite("sqlite", nil)
	RecordArchiveWrite("sqlite", errors.New("disk full"))
	assert.Equal(t, okBefore+1, getCounterVecValue(t, archiveWritesTotal, "sqlite", "ok"))
	assert.Equal(t, errBefore+1, getCounterVecValue(t, archiveWritesTotal, "sqlite", "error"))

	reloadErr := getCounterVecValue(t, configReloadsTotal, "error")
	RecordConfigReload(errors.New("bad yaml"))
	assert.Equal(t, reloadErr+1, getCounterVecValue(t, configReloadsTotal, "error"))
}

func TestRecordCircuitBreakerRejection(t *testing.T) {
	before := getCounterVecValue(t, circuitBreakerRejections, "reject-test")
	RecordCircuitBreakerRejection("reject-test")
	RecordCircuitBreakerRejection("reject-test")
	assert.Equal(t, before+2, getCounterVecValue(t, circuitBreakerRejections, "reject-test"))
}
