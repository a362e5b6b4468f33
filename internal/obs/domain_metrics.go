package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// EmailsProcessedTotal counts pipeline runs per email by outcome.
	EmailsProcessedTotal *prometheus.CounterVec
	// QuotesTotal counts generated quotes by status.
	QuotesTotal *prometheus.CounterVec
	// GapsIdentifiedTotal counts validation gaps by type.
	GapsIdentifiedTotal *prometheus.CounterVec
	// ExtractionDuration records extraction latency in milliseconds per extractor kind.
	ExtractionDuration *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		EmailsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_processed_total",
			Help:      "Count of processed inbox emails by outcome.",
		}, []string{"outcome"})
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Count of generated quotes by status.",
		}, []string{"status"})
		GapsIdentifiedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gaps_identified_total",
			Help:      "Count of validation gaps by type.",
		}, []string{"type"})
		ExtractionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_ms",
			Help:      "Latency of email extraction in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"extractor"})

		mustRegisterCollector(reg, EmailsProcessedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EmailsProcessedTotal = v
			}
		})
		mustRegisterCollector(reg, QuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotesTotal = v
			}
		})
		mustRegisterCollector(reg, GapsIdentifiedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GapsIdentifiedTotal = v
			}
		})
		mustRegisterCollector(reg, ExtractionDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				ExtractionDuration = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(err)
	}
}
