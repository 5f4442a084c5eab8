// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the scheduler's prometheus metrics. One Metrics can be shared
// by many registries.
type Metrics struct {
	TurnsAdvanced    prometheus.Counter
	WaitTimeouts     prometheus.Counter
	AgentsTerminated *prometheus.CounterVec
}

// NewMetrics creates unregistered metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnsAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "interleave",
			Name:      "turns_advanced_total",
			Help:      "Number of times an agent advanced the turn counter.",
		}),
		WaitTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "interleave",
			Name:      "wait_timeouts_total",
			Help:      "Number of bounded waits on the turn counter that timed out.",
		}),
		AgentsTerminated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interleave",
			Name:      "agents_terminated_total",
			Help:      "Number of agents that exited, by termination status.",
		}, []string{"status"}),
	}
}

// Register registers the metrics with the given registerer.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.TurnsAdvanced, m.WaitTimeouts, m.AgentsTerminated} {
		if err := r.Register(c); err != nil {
			return errors.Wrap(err, "registering scheduler metrics")
		}
	}
	return nil
}
