package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m := New()
	reg := prometheus.NewRegistry()
	m.Register(reg)
	return m
}

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var d dto.Metric
	if err := (<-ch).Write(&d); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if d.Counter != nil {
		return d.Counter.GetValue()
	}
	return d.Gauge.GetValue()
}

func TestRecordJobIncrementsCounter(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordJob("start", JobSuccess, 0.25)

	got := counterValue(t, m.JobsTotal.WithLabelValues("start", string(JobSuccess)))
	if got != 1 {
		t.Errorf("JobsTotal = %v, want 1", got)
	}
}

func TestRecordDiscoveryRecordAndScan(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordDiscoveryRecord(DiscoveryClean)
	m.RecordDiscoveryRecord(DiscoveryPartial)
	m.RecordDiscoveryScan()

	if got := counterValue(t, m.DiscoveryTotal.WithLabelValues(string(DiscoveryClean))); got != 1 {
		t.Errorf("clean records = %v, want 1", got)
	}
	if got := counterValue(t, m.DiscoveryTotal.WithLabelValues(string(DiscoveryPartial))); got != 1 {
		t.Errorf("partial records = %v, want 1", got)
	}
	if got := counterValue(t, m.DiscoveryScans); got != 1 {
		t.Errorf("scans = %v, want 1", got)
	}
}

func TestSetCircuitStateAndRemove(t *testing.T) {
	m := newTestMetrics(t)
	m.SetCircuitState("home", CircuitStateOpen)

	if got := counterValue(t, m.CircuitState.WithLabelValues("home")); got != float64(CircuitStateOpen) {
		t.Errorf("CircuitState = %v, want %v", got, CircuitStateOpen)
	}

	m.RemoveNetworkMetrics("home")
	// After removal the label combination is fresh again (reads as 0).
	if got := counterValue(t, m.CircuitState.WithLabelValues("home")); got != 0 {
		t.Errorf("CircuitState after removal = %v, want 0", got)
	}
}

func TestSetNetworksTotal(t *testing.T) {
	m := newTestMetrics(t)
	m.SetNetworksTotal(3)
	if got := counterValue(t, m.NetworksTotal); got != 3 {
		t.Errorf("NetworksTotal = %v, want 3", got)
	}
}
