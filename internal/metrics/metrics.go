// Package metrics exposes the prometheus instruments for the trip core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts scan attempts by direction and outcome
	// (ok, not_found, entitlement_invalid, phase_mismatch, already_scanned, error).
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusbus_scans_total",
		Help: "QR scan attempts by direction and result.",
	}, []string{"direction", "result"})

	// TransitionsTotal counts checkpoint transitions by name and outcome.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusbus_checkpoint_transitions_total",
		Help: "Checkpoint transition submissions by transition and result.",
	}, []string{"transition", "result"})

	// ScanDuration observes end-to-end scan latency.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "campusbus_scan_duration_seconds",
		Help:    "Latency of recordScan including storage commit.",
		Buckets: prometheus.DefBuckets,
	})
)
