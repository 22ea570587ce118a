// Package metrics exposes ingestion measurements to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"eivu-go/internal/eivu"
)

// IngestMetrics holds the Prometheus collectors fed by the ingest service.
type IngestMetrics struct {
	Transitions        *prometheus.CounterVec   // eivu_ingest_transitions_total{event,result}
	TransitionDuration *prometheus.HistogramVec // eivu_ingest_transition_duration_seconds{event}
	FoldersTotal       prometheus.Counter       // eivu_folders_created_total
	RemoteDeletes      *prometheus.CounterVec   // eivu_remote_deletes_total{status}
	BytesIngested      prometheus.Counter       // eivu_ingest_bytes_total
}

// NewIngestMetrics registers the collectors with registry. A nil registry
// means prometheus.DefaultRegisterer.
func NewIngestMetrics(registry prometheus.Registerer) *IngestMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &IngestMetrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eivu_ingest_transitions_total",
			Help: "Lifecycle transitions by event and result",
		}, []string{"event", "result"}),

		TransitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eivu_ingest_transition_duration_seconds",
			Help:    "Lifecycle transition duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),

		FoldersTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "eivu_folders_created_total",
			Help: "Folders created while completing files",
		}),

		RemoteDeletes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eivu_remote_deletes_total",
			Help: "Remote object deletions by status",
		}, []string{"status"}),

		BytesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "eivu_ingest_bytes_total",
			Help: "Bytes uploaded to remote storage",
		}),
	}
}

func (m *IngestMetrics) ObserveTransition(ev eivu.Event, result string, elapsed time.Duration) {
	m.Transitions.WithLabelValues(string(ev), result).Inc()
	m.TransitionDuration.WithLabelValues(string(ev)).Observe(elapsed.Seconds())
}

func (m *IngestMetrics) FoldersCreated(n int) {
	m.FoldersTotal.Add(float64(n))
}

func (m *IngestMetrics) RemoteDelete(status string) {
	m.RemoteDeletes.WithLabelValues(status).Inc()
}

// RecordUpload counts bytes sent to the remote store.
func (m *IngestMetrics) RecordUpload(bytes int64) {
	m.BytesIngested.Add(float64(bytes))
}

var _ eivu.Metrics = (*IngestMetrics)(nil)
