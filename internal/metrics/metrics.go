// Package metrics exposes the Prometheus metrics surface for job
// execution, discovery scans, and per-network circuit breaker state.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tncctl"

// Metrics contains all Prometheus metrics for the commissioner core.
type Metrics struct {
	JobsTotal      *prometheus.CounterVec
	JobDuration    *prometheus.HistogramVec
	DiscoveryTotal *prometheus.CounterVec
	DiscoveryScans prometheus.Counter

	NetworksTotal prometheus.Gauge
	BorderRouters *prometheus.GaugeVec
	CircuitState  *prometheus.GaugeVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the singleton metrics instance.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
		defaultMetrics.Register(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New creates a new Metrics instance.
func New() *Metrics {
	return &Metrics{
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Total number of fan-out jobs run, by verb and outcome",
			},
			[]string{"verb", "outcome"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Duration of a single network's job within a fan-out command",
				Buckets:   []float64{.05, .1, .5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"verb"},
		),
		DiscoveryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "discovery_records_total",
				Help:      "Total number of border agent records decoded by discovery scans",
			},
			[]string{"outcome"},
		),
		DiscoveryScans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "discovery_scans_total",
				Help:      "Total number of mDNS discovery scans run",
			},
		),
		NetworksTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "networks_total",
				Help:      "Current number of networks known to the registry",
			},
		),
		BorderRouters: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "border_routers",
				Help:      "Current number of border routers known per network",
			},
			[]string{"network"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Per-network circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"network"},
		),
	}
}

// Register registers all metrics with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.JobsTotal,
		m.JobDuration,
		m.DiscoveryTotal,
		m.DiscoveryScans,
		m.NetworksTotal,
		m.BorderRouters,
		m.CircuitState,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// JobOutcome classifies how a single network's job within a fan-out ended.
type JobOutcome string

const (
	JobSuccess JobOutcome = "success"
	JobError   JobOutcome = "error"
	JobTimeout JobOutcome = "timeout"
)

// RecordJob records one completed per-network job.
func (m *Metrics) RecordJob(verb string, outcome JobOutcome, durationSec float64) {
	m.JobsTotal.WithLabelValues(verb, string(outcome)).Inc()
	m.JobDuration.WithLabelValues(verb).Observe(durationSec)
}

// DiscoveryOutcome classifies one decoded mDNS record.
type DiscoveryOutcome string

const (
	DiscoveryClean   DiscoveryOutcome = "clean"
	DiscoveryPartial DiscoveryOutcome = "partial_error"
)

// RecordDiscoveryRecord records one decoded border agent record.
func (m *Metrics) RecordDiscoveryRecord(outcome DiscoveryOutcome) {
	m.DiscoveryTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordDiscoveryScan records one completed discovery scan.
func (m *Metrics) RecordDiscoveryScan() {
	m.DiscoveryScans.Inc()
}

// SetNetworksTotal updates the registry network-count gauge.
func (m *Metrics) SetNetworksTotal(count float64) {
	m.NetworksTotal.Set(count)
}

// SetBorderRouterCount updates the per-network border router count gauge.
func (m *Metrics) SetBorderRouterCount(network string, count float64) {
	m.BorderRouters.WithLabelValues(network).Set(count)
}

// CircuitStateValue represents circuit breaker states as numeric values.
type CircuitStateValue float64

const (
	CircuitStateClosed   CircuitStateValue = 0
	CircuitStateHalfOpen CircuitStateValue = 1
	CircuitStateOpen     CircuitStateValue = 2
)

// SetCircuitState updates the circuit breaker state gauge for a network.
func (m *Metrics) SetCircuitState(network string, state CircuitStateValue) {
	m.CircuitState.WithLabelValues(network).Set(float64(state))
}

// RemoveNetworkMetrics removes all per-network metrics for network. The
// registry's delete path does not call it.
func (m *Metrics) RemoveNetworkMetrics(network string) {
	m.BorderRouters.DeleteLabelValues(network)
	m.CircuitState.DeleteLabelValues(network)
}
