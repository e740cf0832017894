package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's instrumentation. A nil *Metrics disables
// recording, so callers can run uninstrumented without nil checks at every
// site.
type Metrics struct {
	estimatesTotal   *prometheus.CounterVec
	estimateDuration prometheus.Histogram
	unknownTrees     prometheus.Counter
	ruleViolations   *prometheus.CounterVec
}

// NewMetrics registers the engine collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		estimatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fiacore",
			Name:      "estimates_total",
			Help:      "Estimate requests by family and outcome.",
		}, []string{"family", "status"}),
		estimateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fiacore",
			Name:      "estimate_duration_seconds",
			Help:      "Wall time of estimate computation.",
			Buckets:   prometheus.DefBuckets,
		}),
		unknownTrees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fiacore",
			Name:      "unknown_component_trees_total",
			Help:      "Trees classified UNKNOWN and excluded from estimates.",
		}),
		ruleViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fiacore",
			Name:      "rule_violations_total",
			Help:      "Integrity rule violations by rule and severity.",
		}, []string{"rule", "severity"}),
	}
	if reg != nil {
		reg.MustRegister(m.estimatesTotal, m.estimateDuration, m.unknownTrees, m.ruleViolations)
	}
	return m
}

func (m *Metrics) observeEstimate(family string, status string, seconds float64) {
	if m == nil {
		return
	}
	m.estimatesTotal.WithLabelValues(family, status).Inc()
	m.estimateDuration.Observe(seconds)
}

func (m *Metrics) observeUnknownTrees(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.unknownTrees.Add(float64(n))
}

func (m *Metrics) observeViolation(rule string, severity string) {
	if m == nil {
		return
	}
	m.ruleViolations.WithLabelValues(rule, severity).Inc()
}
