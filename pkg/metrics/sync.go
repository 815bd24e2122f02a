package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marketsync"

// SyncMetrics records order sync, deduction and flex recompute outcomes.
type SyncMetrics struct {
	ordersSynced   *prometheus.CounterVec
	syncDuration   *prometheus.HistogramVec
	deductions     *prometheus.CounterVec
	flexRecomputes *prometheus.CounterVec
}

// NewSyncMetrics registers the collectors on reg. A nil registerer yields a no-op recorder.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	ordersSynced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_synced_total",
		Help:      "Orders persisted by the sync orchestrator, by result.",
	}, []string{"result"})
	syncDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Wall-clock duration of sync runs.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"mode"})
	deductions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deductions_total",
		Help:      "Inventory deduction audit outcomes.",
	}, []string{"status"})
	flexRecomputes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flex_recomputes_total",
		Help:      "Monthly flex cost recomputes, by result.",
	}, []string{"result"})
	reg.MustRegister(ordersSynced, syncDuration, deductions, flexRecomputes)
	return &SyncMetrics{
		ordersSynced:   ordersSynced,
		syncDuration:   syncDuration,
		deductions:     deductions,
		flexRecomputes: flexRecomputes,
	}
}

// ObserveOrders adds the synced and failed order counts of one run.
func (m *SyncMetrics) ObserveOrders(synced, failed int) {
	if m == nil || m.ordersSynced == nil {
		return
	}
	m.ordersSynced.WithLabelValues("success").Add(float64(synced))
	m.ordersSynced.WithLabelValues("failure").Add(float64(failed))
}

func (m *SyncMetrics) ObserveSyncDuration(mode string, d time.Duration) {
	if m == nil || m.syncDuration == nil {
		return
	}
	m.syncDuration.WithLabelValues(normalizeLabel(mode)).Observe(d.Seconds())
}

func (m *SyncMetrics) IncDeduction(status string) {
	if m == nil || m.deductions == nil {
		return
	}
	m.deductions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *SyncMetrics) IncFlexRecompute(err error) {
	if m == nil || m.flexRecomputes == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.flexRecomputes.WithLabelValues(result).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
