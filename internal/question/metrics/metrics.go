package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for question filtering and retrieval.
type Metrics struct {
	CandidatesByCategory *prometheus.CounterVec
	UncategorisedDropped prometheus.Counter
	Coverage             prometheus.Histogram
	Selected             prometheus.Histogram
	RetrievalCache       *prometheus.CounterVec
	RetrievalOutcomes    *prometheus.CounterVec
	AnswersSaved         prometheus.Counter
	AnswerConflicts      prometheus.Counter
}

// New registers question metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CandidatesByCategory: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kbv_question_candidates_total",
			Help: "Candidate questions seen by the filter, by category",
		}, []string{"category"}),
		UncategorisedDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "kbv_question_uncategorised_dropped_total",
			Help: "Candidate questions dropped because their key is not in the catalog",
		}),
		Coverage: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kbv_question_category_coverage",
			Help:    "Number of evidence categories represented among candidates",
			Buckets: []float64{0, 1, 2, 3},
		}),
		Selected: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kbv_question_selected",
			Help:    "Number of questions selected per retrieval",
			Buckets: []float64{0, 2, 3},
		}),
		RetrievalCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kbv_question_retrieval_cache_total",
			Help: "Question retrieval cache lookups by result (hit, miss)",
		}, []string{"result"}),
		RetrievalOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kbv_question_retrieval_outcomes_total",
			Help: "Question retrieval outcomes returned to the orchestrator",
		}, []string{"outcome"}),
		AnswersSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "kbv_question_answers_saved_total",
			Help: "Answers saved against the next unanswered question",
		}),
		AnswerConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "kbv_question_answer_conflicts_total",
			Help: "Answers ignored because they did not match the next unanswered question",
		}),
	}
}

func (m *Metrics) ObserveCandidate(category string) {
	if m == nil {
		return
	}
	m.CandidatesByCategory.WithLabelValues(category).Inc()
}

func (m *Metrics) IncUncategorised() {
	if m == nil {
		return
	}
	m.UncategorisedDropped.Inc()
}

func (m *Metrics) ObserveSelection(coverage, selected int) {
	if m == nil {
		return
	}
	m.Coverage.Observe(float64(coverage))
	m.Selected.Observe(float64(selected))
}

func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.RetrievalCache.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncCacheMiss() {
	if m == nil {
		return
	}
	m.RetrievalCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.RetrievalOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncAnswerSaved() {
	if m == nil {
		return
	}
	m.AnswersSaved.Inc()
}

func (m *Metrics) IncAnswerConflict() {
	if m == nil {
		return
	}
	m.AnswerConflicts.Inc()
}
