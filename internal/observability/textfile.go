// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability exports keyward metrics for the node_exporter
// textfile collector. Each CLI invocation is short-lived, so metrics are
// written to a file at exit instead of being served over HTTP.
//
// Every write replaces the file, so it describes only the most recent run.
// Outcomes are gauges. The auth *_total counters hold that run's counts and
// start from zero in the next process, so aggregate them with sum_over_time
// rather than rate.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/holomush/keyward/internal/auth"
)

// Recorder collects the metrics of one command run.
type Recorder struct {
	registry *prometheus.Registry
	lastRun  *prometheus.GaugeVec
	success  *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with the auth metrics registered.
func NewRecorder() *Recorder {
	// Create a new registry to avoid polluting the global one
	registry := prometheus.NewRegistry()
	auth.RegisterMetrics(registry)

	r := &Recorder{
		registry: registry,
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keyward_last_run_timestamp_seconds",
				Help: "Unix time the command last finished",
			},
			[]string{"command"},
		),
		success: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keyward_last_run_success",
				Help: "Whether the command's last run succeeded (1) or failed (0)",
			},
			[]string{"command"},
		),
	}
	registry.MustRegister(r.lastRun, r.success)
	return r
}

// Gatherer exposes the registry for inspection.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Finish records the outcome of command at the given time.
func (r *Recorder) Finish(command string, at time.Time, err error) {
	r.lastRun.WithLabelValues(command).Set(float64(at.UnixMilli()) / 1000)
	if err != nil {
		r.success.WithLabelValues(command).Set(0)
		return
	}
	r.success.WithLabelValues(command).Set(1)
}

// WriteTextfile atomically writes all collected metrics to path in the
// Prometheus text format. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return oops.Code("METRICS_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
