package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds all Prometheus metrics of the mutation pipeline.
type PipelineMetrics struct {
	// Generation metrics
	GenerationsTotal *prometheus.CounterVec
	CandidatesTotal  *prometheus.CounterVec
	BatchesTotal     *prometheus.CounterVec
	BatchLatency     *prometheus.HistogramVec

	// Diff protocol metrics
	DropsTotal *prometheus.CounterVec

	// Remote client metrics
	RetriesTotal  *prometheus.CounterVec
	RequestsTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
}

// NewPipelineMetrics creates a new metrics instance registered against reg;
// a nil reg uses the default registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PipelineMetrics{
		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mutation_generations_total",
				Help: "Total number of model generations produced",
			},
			[]string{"backend", "strategy"},
		),

		CandidatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mutation_candidates_total",
				Help: "Total number of candidate programs returned to callers",
			},
			[]string{"backend", "strategy"},
		),

		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mutation_batches_total",
				Help: "Total number of inference batches executed",
			},
			[]string{"backend"},
		),

		BatchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mutation_batch_latency_seconds",
				Help:    "Inference batch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),

		DropsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mutation_drops_total",
				Help: "Total number of candidates dropped for malformed model output",
			},
			[]string{"reason"},
		),

		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mutation_remote_retries_total",
				Help: "Total number of remote completion retries",
			},
			[]string{"model"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mutation_remote_requests_total",
				Help: "Total number of remote completion requests",
			},
			[]string{"model", "status"},
		),

		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mutation_cache_hits_total",
				Help: "Total number of completion cache hits",
			},
		),

		CacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mutation_cache_misses_total",
				Help: "Total number of completion cache misses",
			},
		),
	}
}

// RecordGenerations records produced generations.
func (m *PipelineMetrics) RecordGenerations(backend, strategy string, n int) {
	m.GenerationsTotal.WithLabelValues(backend, strategy).Add(float64(n))
}

// RecordCandidates records candidates returned to the caller.
func (m *PipelineMetrics) RecordCandidates(backend, strategy string, n int) {
	m.CandidatesTotal.WithLabelValues(backend, strategy).Add(float64(n))
}

// RecordBatch records one executed inference batch and its latency.
func (m *PipelineMetrics) RecordBatch(backend string, duration time.Duration) {
	m.BatchesTotal.WithLabelValues(backend).Inc()
	m.BatchLatency.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordDrop records a dropped candidate.
func (m *PipelineMetrics) RecordDrop(reason string) {
	m.DropsTotal.WithLabelValues(reason).Inc()
}

// RecordRetry records a remote completion retry.
func (m *PipelineMetrics) RecordRetry(model string) {
	m.RetriesTotal.WithLabelValues(model).Inc()
}

// RecordRequest records a remote completion request outcome.
func (m *PipelineMetrics) RecordRequest(model, status string) {
	m.RequestsTotal.WithLabelValues(model, status).Inc()
}

// RecordCacheHit records a completion cache hit.
func (m *PipelineMetrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

// RecordCacheMiss records a completion cache miss.
func (m *PipelineMetrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}
