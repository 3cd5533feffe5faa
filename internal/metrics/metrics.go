// Package metrics exposes forwarder activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/aq-logger/internal/forwarder"
)

const namespace = "aqlogger"

var states = []forwarder.State{forwarder.StateLocal, forwarder.StateDisconnected, forwarder.StateConnected}

// Metrics implements forwarder.Recorder on its own registry.
// A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	readings   *prometheus.CounterVec
	replayed   prometheus.Counter
	reconnects *prometheus.CounterVec
	state      *prometheus.GaugeVec
	build      *prometheus.GaugeVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New(version string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_total",
			Help:      "Readings handled, by outcome.",
		}, []string{"outcome"}),
		replayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replayed_readings_total",
			Help:      "Buffered readings written to the store after reconnecting.",
		}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Store provision and connect attempts, by result.",
		}, []string{"result"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "1 for the current connection state, 0 otherwise.",
		}, []string{"state"}),
		build: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information, always 1.",
		}, []string{"version"}),
	}

	m.registry.MustRegister(
		m.readings,
		m.replayed,
		m.reconnects,
		m.state,
		m.build,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.build.WithLabelValues(version).Set(1)
	for _, s := range states {
		m.state.WithLabelValues(s.String()).Set(0)
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOutcome implements forwarder.Recorder.
func (m *Metrics) ObserveOutcome(o forwarder.Outcome) {
	if m == nil {
		return
	}
	m.readings.WithLabelValues(o.String()).Inc()
}

// ObserveReplay implements forwarder.Recorder.
func (m *Metrics) ObserveReplay(n int) {
	if m == nil {
		return
	}
	m.replayed.Add(float64(n))
}

// ObserveReconnect implements forwarder.Recorder.
func (m *Metrics) ObserveReconnect(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.reconnects.WithLabelValues(result).Inc()
}

// ObserveState implements forwarder.Recorder.
func (m *Metrics) ObserveState(s forwarder.State) {
	if m == nil {
		return
	}
	for _, st := range states {
		v := 0.0
		if st == s {
			v = 1
		}
		m.state.WithLabelValues(st.String()).Set(v)
	}
}

var _ forwarder.Recorder = (*Metrics)(nil)
