// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics holds the Prometheus collectors of the tracker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure kinds used as the "kind" label.
const (
	KindAcquire  = "acquire"
	KindClassify = "classify"
	KindPublish  = "publish"
)

type Metrics struct {
	registry *prometheus.Registry

	cycles        prometheus.Counter
	failures      *prometheus.CounterVec
	publishes     prometheus.Counter
	decisions     *prometheus.CounterVec
	activity      prometheus.Gauge
	anomaly       prometheus.Gauge
	cycleDuration prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "fittrack_cycles_total",
			Help: "Completed sampling and classification cycles",
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fittrack_cycle_failures_total",
			Help: "Cycles that failed, by stage",
		}, []string{"kind"}),
		publishes: f.NewCounter(prometheus.CounterOpts{
			Name: "fittrack_publishes_total",
			Help: "Activity transitions written to the transports",
		}),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fittrack_decisions_total",
			Help: "Raw per-window decisions, by activity",
		}, []string{"activity"}),
		activity: f.NewGauge(prometheus.GaugeOpts{
			Name: "fittrack_activity",
			Help: "Published activity value (0 none, 1 rowing, 2 running)",
		}),
		anomaly: f.NewGauge(prometheus.GaugeOpts{
			Name: "fittrack_anomaly_score",
			Help: "Anomaly score of the last window",
		}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fittrack_cycle_duration_seconds",
			Help:    "Duration of a cycle from first sample to publish",
			Buckets: []float64{0.5, 1, 2, 2.5, 3, 4, 5, 10},
		}),
	}
}

func (m *Metrics) CycleCompleted(d time.Duration) {
	m.cycles.Inc()
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) CycleFailed(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Decided(activity string) {
	m.decisions.WithLabelValues(activity).Inc()
}

func (m *Metrics) Published(value int) {
	m.publishes.Inc()
	m.activity.Set(float64(value))
}

func (m *Metrics) Anomaly(score float64) {
	m.anomaly.Set(score)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
