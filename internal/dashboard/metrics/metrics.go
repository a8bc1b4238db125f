package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RefreshesTotal        prometheus.Counter
	RefreshFailuresTotal  prometheus.Counter
	StaleSnapshotsDropped prometheus.Counter
	ExportsTotal          prometheus.Counter
	SnapshotRecords       *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		RefreshesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecap_dashboard_refreshes_total",
			Help: "Total number of completed snapshot refreshes",
		}),
		RefreshFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecap_dashboard_refresh_failures_total",
			Help: "Total number of snapshot refreshes that failed upstream",
		}),
		StaleSnapshotsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecap_dashboard_stale_snapshots_dropped_total",
			Help: "Total number of superseded fetch results discarded",
		}),
		ExportsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecap_dashboard_csv_exports_total",
			Help: "Total number of CSV exports generated",
		}),
		SnapshotRecords: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ecap_dashboard_snapshot_records",
			Help: "Record counts in the current snapshot by kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) IncrementRefreshes() {
	m.RefreshesTotal.Inc()
}

func (m *Metrics) IncrementRefreshFailures() {
	m.RefreshFailuresTotal.Inc()
}

func (m *Metrics) IncrementStaleSnapshotsDropped() {
	m.StaleSnapshotsDropped.Inc()
}

func (m *Metrics) IncrementExports() {
	m.ExportsTotal.Inc()
}

func (m *Metrics) SetSnapshotRecords(kind string, count int) {
	m.SnapshotRecords.WithLabelValues(kind).Set(float64(count))
}
