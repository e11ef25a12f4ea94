package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for answer scoring.
type Metrics struct {
	Outcomes       *prometheus.CounterVec
	NotReady       prometheus.Counter
	AlreadyScored  prometheus.Counter
	CorrectAnswers prometheus.Histogram
}

// New registers answer metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kbv_answer_outcomes_total",
			Help: "Scored answer sets by outcome",
		}, []string{"outcome"}),
		NotReady: f.NewCounter(prometheus.CounterOpts{
			Name: "kbv_answer_submissions_not_ready_total",
			Help: "Submissions attempted before every question was answered",
		}),
		AlreadyScored: f.NewCounter(prometheus.CounterOpts{
			Name: "kbv_answer_submissions_already_scored_total",
			Help: "Submissions for sessions that already have a scored result",
		}),
		CorrectAnswers: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kbv_answer_correct_count",
			Help:    "Correct answers per scored answer set",
			Buckets: []float64{0, 1, 2, 3},
		}),
	}
}

func (m *Metrics) ObserveOutcome(outcome string, correct int) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
	m.CorrectAnswers.Observe(float64(correct))
}

func (m *Metrics) IncNotReady() {
	if m == nil {
		return
	}
	m.NotReady.Inc()
}

func (m *Metrics) IncAlreadyScored() {
	if m == nil {
		return
	}
	m.AlreadyScored.Inc()
}
