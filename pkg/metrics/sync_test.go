package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSyncMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.ObserveOrders(7, 2)
	m.ObserveSyncDuration("date", 1500*time.Millisecond)
	m.IncDeduction("OK_INTERNO")
	m.IncDeduction("OK_INTERNO")
	m.IncDeduction("")
	m.IncFlexRecompute(nil)
	m.IncFlexRecompute(errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		name, label, value string
		want               float64
	}{
		{"marketsync_orders_synced_total", "result", "success", 7},
		{"marketsync_orders_synced_total", "result", "failure", 2},
		{"marketsync_deductions_total", "status", "OK_INTERNO", 2},
		{"marketsync_deductions_total", "status", "unknown", 1},
		{"marketsync_flex_recomputes_total", "result", "success", 1},
		{"marketsync_flex_recomputes_total", "result", "failure", 1},
	}
	for _, c := range checks {
		got, err := fetchCounterValue(mfs, c.name, c.label, c.value)
		if err != nil {
			t.Fatalf("fetch %s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s{%s=%s} = %f, want %f", c.name, c.label, c.value, got, c.want)
		}
	}

	if got, err := fetchHistogramSum(mfs, "marketsync_sync_duration_seconds", "mode", "date"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 1.5 {
		t.Fatalf("expected duration sum 1.5, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewSyncMetrics(nil)
	m.ObserveOrders(1, 1)
	m.ObserveSyncDuration("date", time.Second)
	m.IncDeduction("OK_FULL")
	m.IncFlexRecompute(nil)

	var nilMetrics *SyncMetrics
	nilMetrics.IncDeduction("OK_FULL")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
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
	for _, l := range labels {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
