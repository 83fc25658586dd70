package metrics

import "github.com/prometheus/client_golang/prometheus"

// GenerationMetrics exposes counters/histograms for the generation pipeline.
type GenerationMetrics struct {
	generationTotal   *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	facilityFallback  prometheus.Counter
}

func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	m := &GenerationMetrics{
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebridge",
			Subsystem: "generation",
			Name:      "calls_total",
			Help:      "Generation calls by contract and terminal status",
		}, []string{"contract", "status"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carebridge",
			Subsystem: "generation",
			Name:      "latency_seconds",
			Help:      "End-to-end latency of generation calls including repair",
			Buckets:   prometheus.DefBuckets,
		}, []string{"contract"}),
		facilityFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carebridge",
			Subsystem: "facilities",
			Name:      "directory_fallback_total",
			Help:      "Directory lookups served from the bundled static dataset",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.generationTotal, m.generationLatency, m.facilityFallback)
	return m
}

// ObserveGeneration records one finished generation call. status is one of
// valid, repaired, degraded, error.
func (m *GenerationMetrics) ObserveGeneration(contract, status string, seconds float64) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(contract, status).Inc()
	m.generationLatency.WithLabelValues(contract).Observe(seconds)
}

// ObserveFacilityFallback records a directory lookup that degraded to the
// static dataset.
func (m *GenerationMetrics) ObserveFacilityFallback() {
	if m == nil {
		return
	}
	m.facilityFallback.Inc()
}
