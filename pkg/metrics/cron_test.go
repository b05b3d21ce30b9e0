package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsSplitsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.Observe("pending-expiry", 40*time.Millisecond, nil)
	m.Observe("pending-expiry", 10*time.Millisecond, errors.New("db gone"))
	m.Observe("pending-expiry", 20*time.Millisecond, nil)
	m.IncSkipped()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	ok := counterWithLabels(t, mfs, "rentalz_cron_job_runs_total", map[string]string{"job": "pending-expiry", "outcome": OutcomeSucceeded})
	failed := counterWithLabels(t, mfs, "rentalz_cron_job_runs_total", map[string]string{"job": "pending-expiry", "outcome": OutcomeFailed})
	if ok != 2 || failed != 1 {
		t.Fatalf("expected 2 ok / 1 failed, got %v / %v", ok, failed)
	}
	if sum, err := fetchHistogramSum(mfs, "rentalz_cron_job_duration_seconds", "job", "pending-expiry"); err != nil || sum < 0.069 {
		t.Fatalf("unexpected duration sum %f err=%v", sum, err)
	}
	if mf := findMetricFamily(mfs, "rentalz_cron_job_last_success_timestamp_seconds"); mf == nil || mf.GetMetric()[0].GetGauge().GetValue() <= 0 {
		t.Fatal("expected last success gauge to be set")
	}
	if mf := findMetricFamily(mfs, "rentalz_cron_ticks_skipped_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatal("expected one skipped tick")
	}
}

func TestNilJobMetricsIsSafe(t *testing.T) {
	var m *JobMetrics
	m.Observe("job", time.Second, nil)
	m.IncSkipped()
	NewJobMetrics(nil).Observe("job", time.Second, errors.New("x"))
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, errors.New("metric " + name + " not found")
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, errors.New("histogram " + name + " missing label " + label + "=" + value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
