// Package metrics holds the agent's monotone counters.
//
// Counters are plain atomics so the session and supervisor can bump them
// without a registry dependency; Register mirrors them as Prometheus
// collectors for the /metrics endpoint.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the agent's lifetime counters. All fields are monotone.
type Metrics struct {
	QuotesReceived  atomic.Uint64
	QuotesResponded atomic.Uint64
	QuotesRejected  atomic.Uint64
	DepthPushes     atomic.Uint64
	Reconnections   atomic.Uint64
}

// New creates a zeroed metrics set.
func New() *Metrics {
	return &Metrics{}
}

// Register mirrors the counters on a Prometheus registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: name, Help: help},
			func() float64 { return float64(v.Load()) },
		)
	}

	reg.MustRegister(
		counter("mm_quotes_received_total", "Quote requests received", &m.QuotesReceived),
		counter("mm_quotes_responded_total", "Quote requests answered with a signed order", &m.QuotesResponded),
		counter("mm_quotes_rejected_total", "Quote requests rejected", &m.QuotesRejected),
		counter("mm_depth_pushes_total", "Depth snapshots pushed", &m.DepthPushes),
		counter("mm_reconnections_total", "Session reconnect attempts after a fatal error", &m.Reconnections),
	)
}
