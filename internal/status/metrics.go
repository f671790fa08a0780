// Package status exposes the agent's health, metrics and last cycle report
// over HTTP.
package status

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/agent"
)

const namespace = "ddns"

// Metrics holds the collectors updated after every cycle.
type Metrics struct {
	Registry *prometheus.Registry

	operations  *prometheus.CounterVec
	addresses   *prometheus.GaugeVec
	skipped     prometheus.Counter
	resyncs     prometheus.Counter
	cycleErrors prometheus.Counter
	lastCycle   prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewMetrics registers the agent collectors, plus the Go and process
// collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_operations_total",
			Help:      "Record writes issued against the provider, by operation and result.",
		}, []string{"op", "result"}),
		addresses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "public_addresses",
			Help:      "Public addresses discovered in the last cycle, by family.",
		}, []string{"family"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "foreign_records_skipped_total",
			Help:      "Records matching a removed address that belong to another device.",
		}),
		resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resyncs_total",
			Help:      "Full resynchronizations performed.",
		}),
		cycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_errors_total",
			Help:      "Cycles that ended with an error.",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last cycle.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle that reached the provider.",
		}),
	}
	m.Registry.MustRegister(
		m.operations, m.addresses, m.skipped, m.resyncs, m.cycleErrors, m.lastCycle, m.lastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) observe(rep agent.Report) {
	m.operations.WithLabelValues("create", "success").Add(float64(rep.Created))
	m.operations.WithLabelValues("create", "failure").Add(float64(rep.CreateFailed))
	m.operations.WithLabelValues("delete", "success").Add(float64(rep.Deleted))
	m.operations.WithLabelValues("delete", "failure").Add(float64(rep.DeleteFailed))
	m.skipped.Add(float64(rep.Skipped))
	if rep.Resync {
		m.resyncs.Inc()
	}
	if rep.Err != nil {
		m.cycleErrors.Inc()
	}
	m.lastCycle.Set(float64(rep.Time.Unix()))
	if !rep.Synced {
		return
	}
	m.lastSuccess.Set(float64(rep.Time.Unix()))

	var v4, v6 int
	for _, a := range rep.Addresses {
		if strings.Contains(a, ":") {
			v6++
		} else {
			v4++
		}
	}
	m.addresses.WithLabelValues("v4").Set(float64(v4))
	m.addresses.WithLabelValues("v6").Set(float64(v6))
}
