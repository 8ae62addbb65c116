package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMonitorMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMonitorMetrics(reg)

	metrics.ObserveCheck("match", 120*time.Millisecond)
	metrics.IncPurchaseSuccess("merchant_demo")
	metrics.IncPurchaseFailure("PAYMENT_DECLINED")
	metrics.SetActiveJobs(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "monitor_checks_total", "outcome", "match"); err != nil {
		t.Fatalf("fetch checks: %v", err)
	} else if got != 1 {
		t.Fatalf("expected checks=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "monitor_purchase_success_total", "merchant", "merchant_demo"); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "monitor_purchase_failure_total", "code", "PAYMENT_DECLINED"); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "monitor_check_duration_seconds", "outcome", "match"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestMonitorMetricsNilSafe(t *testing.T) {
	var metrics *MonitorMetrics
	metrics.ObserveCheck("match", time.Second)
	metrics.IncPurchaseSuccess("m")
	metrics.IncPurchaseFailure("c")
	metrics.SetActiveJobs(1)

	empty := NewMonitorMetrics(nil)
	empty.ObserveCheck("", time.Second)
	empty.SetActiveJobs(0)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if metricHasLabel(metric, label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q with %s=%s not found", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if metricHasLabel(metric, label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("metric %q with %s=%s not found", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func metricHasLabel(metric *dto.Metric, label, value string) bool {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == label && pair.GetValue() == value {
			return true
		}
	}
	return false
}
