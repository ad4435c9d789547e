// Package metrics exposes control-loop counters to Prometheus.
package metrics

import (
	"net/http"

	"greenhouse_control/internal/aiclient"
	"greenhouse_control/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Breaker state gauge values.
const (
	breakerClosed   = 0
	breakerHalfOpen = 1
	breakerOpen     = 2
)

type Metrics struct {
	reg *prometheus.Registry

	breakerState     prometheus.Gauge
	breakerSignals   *prometheus.CounterVec
	samplesAccepted  *prometheus.CounterVec
	samplesDuplicate prometheus.Counter
	devicesDisabled  prometheus.Counter
	decisions        *prometheus.CounterVec
	schedules        *prometheus.CounterVec
	conflicts        prometheus.Counter
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_decision_breaker_state",
			Help: "Decision service breaker state (0 closed, 1 half-open, 2 open).",
		}),
		breakerSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_decision_breaker_signals_total",
			Help: "Breaker signals by kind.",
		}, []string{"signal"}),
		samplesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_samples_accepted_total",
			Help: "Feed samples accepted by the telemetry buffer.",
		}, []string{"quantity"}),
		samplesDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhouse_samples_duplicate_total",
			Help: "Feed samples rejected because their timestamp did not advance.",
		}),
		devicesDisabled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhouse_devices_disabled_total",
			Help: "Sensors disabled after repeated stale samples.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_decisions_total",
			Help: "Decision cycles by outcome.",
		}, []string{"outcome"}),
		schedules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_schedules_created_total",
			Help: "Schedule windows created by source.",
		}, []string{"source"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhouse_schedule_conflicts_total",
			Help: "Schedule creations rejected for overlapping an active window.",
		}),
	}
	m.reg.MustRegister(
		m.breakerState, m.breakerSignals,
		m.samplesAccepted, m.samplesDuplicate, m.devicesDisabled,
		m.decisions, m.schedules, m.conflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// BreakerSignal implements aiclient.Observer.
func (m *Metrics) BreakerSignal(s aiclient.Signal) {
	m.breakerSignals.WithLabelValues(string(s)).Inc()
	switch s {
	case aiclient.SignalOpened:
		m.breakerState.Set(breakerOpen)
	case aiclient.SignalHalfOpen:
		m.breakerState.Set(breakerHalfOpen)
	case aiclient.SignalClosed:
		m.breakerState.Set(breakerClosed)
	}
}

func (m *Metrics) SampleAccepted(q models.Quantity) {
	m.samplesAccepted.WithLabelValues(string(q)).Inc()
}

func (m *Metrics) SampleDuplicate() { m.samplesDuplicate.Inc() }

func (m *Metrics) DeviceDisabled() { m.devicesDisabled.Inc() }

func (m *Metrics) Decision(outcome string) {
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ScheduleCreated(source string) {
	m.schedules.WithLabelValues(source).Inc()
}

func (m *Metrics) ScheduleConflict() { m.conflicts.Inc() }
