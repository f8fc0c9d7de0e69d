package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "repodocs"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	resolutions     *prom.CounterVec
	resolveDuration *prom.HistogramVec
	stepFaults      *prom.CounterVec
	searches        *prom.CounterVec
	searchDuration  prom.Histogram
	indexedChunks   prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		resolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Documentation resolutions by producing strategy",
		}, []string{"strategy"}),
		resolveDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Duration of documentation resolution",
			Buckets:   prom.DefBuckets,
		}, []string{"strategy"}),
		stepFaults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_step_faults_total",
			Help:      "Recovered faults inside resolver steps",
		}, []string{"step"}),
		searches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Documentation searches by outcome",
		}, []string{"outcome"}),
		searchDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of documentation searches including lazy indexing",
			Buckets:   prom.DefBuckets,
		}),
		indexedChunks: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_chunks_total",
			Help:      "Chunks written to the vector store",
		}),
	}
	reg.MustRegister(pr.resolutions, pr.resolveDuration, pr.stepFaults, pr.searches, pr.searchDuration, pr.indexedChunks)
	return pr
}

func (p *PrometheusRecorder) IncResolution(strategy string) {
	p.resolutions.WithLabelValues(strategy).Inc()
}

func (p *PrometheusRecorder) ObserveResolveDuration(strategy string, d time.Duration) {
	p.resolveDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepFault(step string) {
	p.stepFaults.WithLabelValues(step).Inc()
}

func (p *PrometheusRecorder) IncSearch(outcome string) {
	p.searches.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveSearchDuration(d time.Duration) {
	p.searchDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddIndexedChunks(n int) {
	if n > 0 {
		p.indexedChunks.Add(float64(n))
	}
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
