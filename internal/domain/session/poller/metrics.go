// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pollTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "interviewd_status_polls_total",
		Help: "Status poll outcomes (ok, error, stale).",
	},
	[]string{"result"},
)
