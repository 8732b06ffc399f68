package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects seeding and validation counters.
type Metrics struct {
	records  *prometheus.CounterVec
	batches  *prometheus.CounterVec
	duration prometheus.Histogram
	warnings *prometheus.CounterVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dbops_seed_records_total",
		Help: "Seed records processed, by outcome.",
	}, []string{"outcome"})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dbops_seed_batches_total",
		Help: "Seed batches completed, by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dbops_seed_batch_duration_seconds",
		Help:    "Wall time of a seed batch.",
		Buckets: prometheus.DefBuckets,
	})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dbops_migration_warnings_total",
		Help: "Dangerous statements found by the migration check, by keyword.",
	}, []string{"keyword"})

	records = registerCounterVec(registerer, records)
	batches = registerCounterVec(registerer, batches)
	duration = registerHistogram(registerer, duration)
	warnings = registerCounterVec(registerer, warnings)

	return &Metrics{
		records:  records,
		batches:  batches,
		duration: duration,
		warnings: warnings,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) IncRecord(outcome string) {
	if m == nil || m.records == nil {
		return
	}
	m.records.WithLabelValues(outcome).Inc()
}

// ObserveBatch counts a finished batch as "clean" or "partial"
func (m *Metrics) ObserveBatch(failed int, elapsed time.Duration) {
	if m == nil || m.batches == nil {
		return
	}
	result := "clean"
	if failed > 0 {
		result = "partial"
	}
	m.batches.WithLabelValues(result).Inc()
	if m.duration != nil {
		m.duration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) IncWarning(keyword string) {
	if m == nil || m.warnings == nil {
		return
	}
	m.warnings.WithLabelValues(keyword).Inc()
}

func registerCounterVec(registerer prometheus.Registerer, counter *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return counter
}

func registerHistogram(registerer prometheus.Registerer, histogram prometheus.Histogram) prometheus.Histogram {
	if err := registerer.Register(histogram); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Histogram); ok {
				return existing
			}
		}
	}
	return histogram
}
