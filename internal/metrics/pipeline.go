package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline holds the counters updated by the backup and restore jobs and the
// queue poller. A nil *Pipeline is valid and records nothing.
type Pipeline struct {
	SnapshotsWritten  *prometheus.CounterVec
	DocumentsBackedUp *prometheus.CounterVec
	BlobsRestored     *prometheus.CounterVec
	DocumentsRestored *prometheus.CounterVec
	Continuations     *prometheus.CounterVec
	MessagesHandled   *prometheus.CounterVec
	MessageDuration   *prometheus.HistogramVec
}

// NewPipeline registers the pipeline metrics with reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	f := promauto.With(reg)
	return &Pipeline{
		SnapshotsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "searchvault_snapshots_written_total",
			Help: "Snapshot blobs written by backup jobs",
		}, []string{"index"}),
		DocumentsBackedUp: f.NewCounterVec(prometheus.CounterOpts{
			Name: "searchvault_documents_backed_up_total",
			Help: "Documents written to snapshot blobs",
		}, []string{"index"}),
		BlobsRestored: f.NewCounterVec(prometheus.CounterOpts{
			Name: "searchvault_blobs_restored_total",
			Help: "Snapshot blobs replayed into a search index",
		}, []string{"index"}),
		DocumentsRestored: f.NewCounterVec(prometheus.CounterOpts{
			Name: "searchvault_documents_restored_total",
			Help: "Documents upserted into a search index by restore jobs",
		}, []string{"index"}),
		Continuations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "searchvault_continuations_total",
			Help: "Continuation messages enqueued",
		}, []string{"job"}),
		MessagesHandled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "searchvault_queue_messages_total",
			Help: "Queue messages handled, by outcome",
		}, []string{"queue", "outcome"}),
		MessageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "searchvault_queue_message_duration_seconds",
			Help:    "Time spent handling one queue message",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"queue"}),
	}
}

func (p *Pipeline) SnapshotWritten(index string, docs int) {
	if p == nil {
		return
	}
	p.SnapshotsWritten.WithLabelValues(index).Inc()
	p.DocumentsBackedUp.WithLabelValues(index).Add(float64(docs))
}

func (p *Pipeline) BlobRestored(index string, docs int) {
	if p == nil {
		return
	}
	p.BlobsRestored.WithLabelValues(index).Inc()
	p.DocumentsRestored.WithLabelValues(index).Add(float64(docs))
}

func (p *Pipeline) ContinuationEnqueued(job string) {
	if p == nil {
		return
	}
	p.Continuations.WithLabelValues(job).Inc()
}

func (p *Pipeline) MessageHandled(queue, outcome string, seconds float64) {
	if p == nil {
		return
	}
	p.MessagesHandled.WithLabelValues(queue, outcome).Inc()
	p.MessageDuration.WithLabelValues(queue).Observe(seconds)
}
