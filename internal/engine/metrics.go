package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters updated at the end of each backup pass and
// restore session.
type Metrics struct {
	PassesTotal     prometheus.Counter
	PassDuration    prometheus.Histogram
	RecordsTotal    *prometheus.CounterVec
	BytesTotal      *prometheus.CounterVec
	TombstonesTotal *prometheus.CounterVec
	DeferredTotal   *prometheus.CounterVec
	AbortedTotal    *prometheus.CounterVec
	RestoreEntities *prometheus.CounterVec
	RestoreSessions prometheus.Counter
}

// Restore outcomes recorded in the outcome label.
const (
	outcomeApplied = "applied"
	outcomeSkipped = "skipped"
)

// NewMetrics registers the engine metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PassesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "homesync_backup_passes_total",
			Help: "Total number of backup passes run",
		}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "homesync_backup_pass_duration_seconds",
			Help:    "Duration of backup passes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		RecordsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homesync_backup_records_total",
			Help: "Records written to the backup stream",
		}, []string{"type"}),
		BytesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homesync_backup_bytes_total",
			Help: "Record bytes written to the backup stream",
		}, []string{"type"}),
		TombstonesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homesync_backup_tombstones_total",
			Help: "Tombstones written to the backup stream",
		}, []string{"type"}),
		DeferredTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homesync_backup_deferred_total",
			Help: "Resource candidates deferred by quota",
		}, []string{"type"}),
		AbortedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homesync_backup_aborted_total",
			Help: "Per-type exports aborted by data source or stream failures",
		}, []string{"type"}),
		RestoreEntities: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homesync_restore_entities_total",
			Help: "Restored entities by key type and outcome",
		}, []string{"type", "outcome"}),
		RestoreSessions: f.NewCounter(prometheus.CounterOpts{
			Name: "homesync_restore_sessions_total",
			Help: "Total number of finalized restore sessions",
		}),
	}
}

var (
	defaultOnce sync.Once
	defaults    *Metrics
)

// defaultMetrics returns the process-wide metric set registered with
// prometheus.DefaultRegisterer.
func defaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		defaults = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaults
}

func (m *Metrics) observePass(r *PassReport) {
	m.PassesTotal.Inc()
	m.PassDuration.Observe(r.Duration.Seconds())
	for _, tr := range r.Types {
		label := tr.Type.String()
		m.RecordsTotal.WithLabelValues(label).Add(float64(tr.Written))
		m.BytesTotal.WithLabelValues(label).Add(float64(tr.Bytes))
		m.TombstonesTotal.WithLabelValues(label).Add(float64(tr.Tombstones))
		m.DeferredTotal.WithLabelValues(label).Add(float64(tr.Deferred))
		if tr.Aborted() {
			m.AbortedTotal.WithLabelValues(label).Inc()
		}
	}
}

func (m *Metrics) observeRestore(r *RestoreReport) {
	m.RestoreSessions.Inc()
	for t, n := range r.AppliedByType {
		m.RestoreEntities.WithLabelValues(t.String(), outcomeApplied).Add(float64(n))
	}
	for t, n := range r.SkippedByType {
		m.RestoreEntities.WithLabelValues(t.String(), outcomeSkipped).Add(float64(n))
	}
}
