package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MonitorMetrics records condition-check and purchase outcomes for the
// monitoring scheduler. All methods are nil-safe so callers can skip wiring
// a registry in tests.
type MonitorMetrics struct {
	checkDuration   *prometheus.HistogramVec
	checksTotal     *prometheus.CounterVec
	purchaseSuccess *prometheus.CounterVec
	purchaseFailure *prometheus.CounterVec
	activeJobs      prometheus.Gauge
}

// NewMonitorMetrics registers the monitoring metrics on the provided registerer.
func NewMonitorMetrics(reg prometheus.Registerer) *MonitorMetrics {
	if reg == nil {
		return &MonitorMetrics{}
	}
	checkDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "monitor_check_duration_seconds",
		Help:    "Duration of monitoring condition checks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	checksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_checks_total",
		Help: "Condition checks performed, labelled by outcome.",
	}, []string{"outcome"})
	purchaseSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_purchase_success_total",
		Help: "Autonomous purchases that were authorized.",
	}, []string{"merchant"})
	purchaseFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_purchase_failure_total",
		Help: "Autonomous purchase attempts that failed, labelled by code.",
	}, []string{"code"})
	activeJobs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monitor_active_jobs",
		Help: "Monitoring jobs currently in the active state.",
	})
	reg.MustRegister(checkDuration, checksTotal, purchaseSuccess, purchaseFailure, activeJobs)
	return &MonitorMetrics{
		checkDuration:   checkDuration,
		checksTotal:     checksTotal,
		purchaseSuccess: purchaseSuccess,
		purchaseFailure: purchaseFailure,
		activeJobs:      activeJobs,
	}
}

// ObserveCheck records one condition check with its duration and outcome.
func (m *MonitorMetrics) ObserveCheck(outcome string, duration time.Duration) {
	if m == nil || m.checkDuration == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.checkDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.checksTotal.WithLabelValues(label).Inc()
}

// IncPurchaseSuccess increments the authorized purchase counter.
func (m *MonitorMetrics) IncPurchaseSuccess(merchant string) {
	if m == nil || m.purchaseSuccess == nil {
		return
	}
	m.purchaseSuccess.WithLabelValues(normalizeLabel(merchant)).Inc()
}

// IncPurchaseFailure increments the failed purchase counter for an error code.
func (m *MonitorMetrics) IncPurchaseFailure(code string) {
	if m == nil || m.purchaseFailure == nil {
		return
	}
	m.purchaseFailure.WithLabelValues(normalizeLabel(code)).Inc()
}

// SetActiveJobs records the current number of active monitoring jobs.
func (m *MonitorMetrics) SetActiveJobs(n int) {
	if m == nil || m.activeJobs == nil {
		return
	}
	m.activeJobs.Set(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
