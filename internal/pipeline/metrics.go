package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds solve-pipeline Prometheus metrics.
type Metrics struct {
	questionsTotal    *prometheus.CounterVec
	solutionsTotal    *prometheus.CounterVec
	guardrailFailures prometheus.Counter
	solveDuration     prometheus.Histogram
}

// NewMetrics registers pipeline metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		questionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mathd_questions_total",
			Help: "Incoming questions by guardrail outcome (accepted, rejected).",
		}, []string{"outcome"}),
		solutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mathd_solutions_total",
			Help: "Returned solutions by path (pipeline, legacy, apology).",
		}, []string{"path"}),
		guardrailFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mathd_output_guardrail_failures_total",
			Help: "Solutions that failed output validation and triggered a fallback tier.",
		}),
		solveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mathd_solve_duration_seconds",
			Help:    "End-to-end solve latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
	}
}

func (m *Metrics) question(outcome string) {
	if m != nil {
		m.questionsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) solved(path string) {
	if m != nil {
		m.solutionsTotal.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) guardrailFailure() {
	if m != nil {
		m.guardrailFailures.Inc()
	}
}

func (m *Metrics) observeDuration(seconds float64) {
	if m != nil {
		m.solveDuration.Observe(seconds)
	}
}
