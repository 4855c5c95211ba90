package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewManagerWithOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(
		WithNamespace("testns"),
		WithSubsystem("testsub"),
		WithHistogramBuckets([]float64{1, 10, 100}),
		WithPrometheusRegistry(reg),
	)

	if m.namespace != "testns" {
		t.Errorf("namespace = %q, want testns", m.namespace)
	}
	if m.subsystem != "testsub" {
		t.Errorf("subsystem = %q, want testsub", m.subsystem)
	}
	if len(m.histogramBuckets) != 3 {
		t.Errorf("expected 3 buckets, got %d", len(m.histogramBuckets))
	}
}

func TestOptionsIgnoreZeroValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(
		WithNamespace(""),
		WithSubsystem(""),
		WithHistogramBuckets(nil),
		WithPrometheusRegistry(reg),
	)

	if m.namespace != "liveboard" {
		t.Errorf("namespace = %q, want default liveboard", m.namespace)
	}
	if m.subsystem != "scoreboard" {
		t.Errorf("subsystem = %q, want default scoreboard", m.subsystem)
	}
	if len(m.histogramBuckets) == 0 {
		t.Error("expected default buckets to survive a nil option")
	}
}

func TestGlobalHelpersDoNotPanic(t *testing.T) {
	RecordSubmissionAccepted()
	RecordSubmissionThrottled()
	RecordSubmissionFailed()
	RecordLimiterFailOpen()
	RecordStoreLatency("increment", 1.0)
	RecordEventPublished("heartbeat")
	UpdateSubscriberCount(3)
	UpdateTotalUsers(42)
	RecordHTTPRequest("leaderboard", "GET", "200")
	RecordHTTPRequestDuration("leaderboard", "GET", "200", 2.5)
	UpdateSystemMemoryUsage(1 << 20)
	UpdateSystemGoroutineCount(10)

	if GetRegistry() == nil {
		t.Fatal("expected a custom registry")
	}
	families, err := GetRegistry().Gather()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected gathered metric families")
	}
}
