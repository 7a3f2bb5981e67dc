package consistency

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes engine activity to Prometheus
type Metrics struct {
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	DeletedRows      *prometheus.CounterVec
	ReconcileChanges *prometheus.CounterVec
}

// NewMetrics registers the engine metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_operations_total",
			Help: "Catalog transactions by operation and outcome",
		}, []string{"operation", "outcome"}),
		OperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_operation_duration_seconds",
			Help:    "Duration of catalog transactions, commit or rollback included",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		DeletedRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_cascade_deleted_rows_total",
			Help: "Rows removed by committed cascading deletes, per entity type",
		}, []string{"entity"}),
		ReconcileChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_reconcile_changes_total",
			Help: "Membership changes applied by committed reconciliations",
		}, []string{"parent", "change"}),
	}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "committed"
	if err != nil {
		outcome = KindOf(err).String()
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
	m.OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) deleted(c Counts) {
	if m == nil {
		return
	}
	for t, n := range c {
		if n > 0 {
			m.DeletedRows.WithLabelValues(string(t)).Add(float64(n))
		}
	}
}

func (m *Metrics) reconciled(r *ReconcileResult) {
	if m == nil || r == nil {
		return
	}
	parent := string(r.Parent)
	m.ReconcileChanges.WithLabelValues(parent, "linked").Add(float64(len(r.Linked)))
	m.ReconcileChanges.WithLabelValues(parent, "unlinked").Add(float64(len(r.Unlinked)))
	m.ReconcileChanges.WithLabelValues(parent, "ignored").Add(float64(len(r.Ignored)))
}
