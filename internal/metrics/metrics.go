// Package metrics holds the prometheus collectors for evaluation runs and
// the background queue. A nil *Metrics records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "project_evaluator"

// UnsupportedLanguage labels runs for languages without a rubric, keeping
// label values bounded by the registry.
const UnsupportedLanguage = "unsupported"

type Metrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	overallScore *prometheus.HistogramVec
	queueDepth   prometheus.Gauge
	jobsRejected prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: language, state (completed, skipped, failed)
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "runs_total",
			Help:      "Evaluation runs by terminal state",
		}, []string{"language", "state"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "run_duration_seconds",
			Help:      "Time to collect, score and persist one language",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"language"}),
		overallScore: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "overall_score",
			Help:      "Distribution of overall scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}, []string{"language"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Jobs waiting in the background queue",
		}),
		jobsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "rejected_total",
			Help:      "Jobs refused because the queue was full",
		}),
	}
}

func (m *Metrics) ObserveRun(language, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(language, state).Inc()
	m.runDuration.WithLabelValues(language).Observe(d.Seconds())
}

func (m *Metrics) ObserveScore(language string, score float64) {
	if m == nil {
		return
	}
	m.overallScore.WithLabelValues(language).Observe(score)
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) JobRejected() {
	if m == nil {
		return
	}
	m.jobsRejected.Inc()
}
